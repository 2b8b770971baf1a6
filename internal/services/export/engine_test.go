package export_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/codeagg/internal/artifact"
	"github.com/temirov/codeagg/internal/output"
	"github.com/temirov/codeagg/internal/services/export"
	"github.com/temirov/codeagg/internal/types"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func numberedLines(count int) string {
	lines := make([]string, count)
	for index := range lines {
		lines[index] = "print(" + strings.Repeat("x", index) + ")"
	}
	return strings.Join(lines, "\n")
}

func fixedClock() time.Time {
	return time.Date(2024, time.January, 2, 3, 4, 5, 0, time.Local)
}

type stubCounter struct{}

func (stubCounter) Name() string { return "stub" }

func (stubCounter) CountString(input string) (int, error) { return len(strings.Fields(input)), nil }

func TestRunEndToEndScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":     numberedLines(10),
		"b.bin":    "abcd\x00efgh",
		"sub/c.py": numberedLines(5),
	})
	outputPath := filepath.Join(t.TempDir(), "export.txt")

	engine := export.NewEngine(export.Options{Clock: fixedClock})
	result, runError := engine.Run(context.Background(), types.Configuration{
		Root:               root,
		ExcludeDirectories: []string{"sub"},
		OutputPath:         outputPath,
	})
	require.NoError(t, runError)

	assert.Equal(t, outputPath, result.ExportPath)
	assert.Equal(t, 1, result.Statistics.TotalFiles)
	assert.Equal(t, 10, result.Statistics.TotalLines)
	assert.Equal(t, 1, result.Statistics.BinaryFiles)
	assert.Equal(t, map[string]int{"Python": 1}, result.Statistics.FilesByType)
	assert.NotEmpty(t, result.Statistics.RunID)

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	exported := string(content)
	assert.Equal(t, 1, strings.Count(exported, "// FILE: "))
	assert.Contains(t, exported, "// FILE: "+filepath.Join(root, "a.py")+"\n")
	assert.Contains(t, exported, "// RELATIVE: a.py\n")
	assert.Contains(t, exported, "// TYPE: Python | SIZE: ")
	assert.Contains(t, exported, "| LINES: 10\n")
	assert.True(t, strings.HasPrefix(exported, "Code Aggregator Export\n"+output.SeparatorLine+"\nGenerated: 2024-01-02 03:04:05\n"))
	assert.Contains(t, exported, "Excluded Folders: sub\n")
	assert.NotContains(t, exported, "c.py")
}

func TestRunOutcomeCountersCoverEveryCandidate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":       "package keep\n",
		"data.go":       "\x00\x01",
		"huge.go":       strings.Repeat("a", 64),
		"notes.unknown": "text",
		"skip.log":      "log line",
		".hidden.go":    "package hidden",
		"excluded/x.go": "package excluded",
	})
	outputPath := filepath.Join(t.TempDir(), "export.txt")

	result, runError := export.NewEngine(export.Options{}).Run(context.Background(), types.Configuration{
		Root:               root,
		IncludeExtensions:  []string{".go", ".log"},
		ExcludeExtensions:  []string{".log"},
		ExcludeDirectories: []string{"excluded"},
		MaxFileSizeBytes:   32,
		OutputPath:         outputPath,
	})
	require.NoError(t, runError)

	statistics := result.Statistics
	assert.Equal(t, 1, statistics.TotalFiles)
	assert.Equal(t, 1, statistics.BinaryFiles)
	assert.Equal(t, 1, statistics.LargeFiles)
	assert.Equal(t, 2, statistics.IgnoredFiles)
	assert.Equal(t, 0, statistics.ErrorFiles)
	assert.Equal(t, 5, statistics.Candidates(), "hidden files and excluded subtrees are never candidates")
}

func TestRunSizeBoundary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"at.txt":    strings.Repeat("a", 100),
		"above.txt": strings.Repeat("a", 101),
	})
	result, runError := export.NewEngine(export.Options{}).Run(context.Background(), types.Configuration{
		Root:             root,
		MaxFileSizeBytes: 100,
		OutputPath:       filepath.Join(t.TempDir(), "export.txt"),
	})
	require.NoError(t, runError)
	assert.Equal(t, 1, result.Statistics.TotalFiles)
	assert.Equal(t, 1, result.Statistics.LargeFiles)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "at.txt", result.Records[0].RelativePath)
	assert.Equal(t, int64(100), result.Records[0].SizeBytes)
}

func TestRunBinaryRegardlessOfExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"disguised.py": "import os\x00"})
	result, runError := export.NewEngine(export.Options{}).Run(context.Background(), types.Configuration{
		Root:              root,
		IncludeExtensions: []string{".py"},
		OutputPath:        filepath.Join(t.TempDir(), "export.txt"),
	})
	require.NoError(t, runError)
	assert.Equal(t, 0, result.Statistics.TotalFiles)
	assert.Equal(t, 1, result.Statistics.BinaryFiles)
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"z.md":     "# z\n",
		"a/b.py":   "x = 1\n",
		"a/c/d.go": "package d\n",
		"m.txt":    "",
	})
	engine := export.NewEngine(export.Options{Clock: fixedClock})
	configuration := types.Configuration{Root: root, OutputPath: filepath.Join(t.TempDir(), "export.txt")}

	first, firstError := engine.Run(context.Background(), configuration)
	require.NoError(t, firstError)
	firstContent, _ := os.ReadFile(first.ExportPath)
	second, secondError := engine.Run(context.Background(), configuration)
	require.NoError(t, secondError)
	secondContent, _ := os.ReadFile(second.ExportPath)

	assert.Equal(t, first.Records, second.Records)
	first.Statistics.Duration, second.Statistics.Duration = 0, 0
	first.Statistics.RunID, second.Statistics.RunID = "", ""
	assert.Equal(t, first.Statistics, second.Statistics)
	assert.Equal(t, string(firstContent), string(secondContent))

	var order []string
	for _, record := range first.Records {
		order = append(order, record.RelativePath)
	}
	assert.Equal(t, []string{"a/b.py", "a/c/d.go", "m.txt", "z.md"}, order)
	assert.Equal(t, 0, first.Records[2].LineCount, "empty file has zero lines")
}

func TestRunLineNumbersAndTokens(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main\nfunc main() {}"})
	outputPath := filepath.Join(t.TempDir(), "export.txt")
	var checkpoints []types.Progress

	result, runError := export.NewEngine(export.Options{
		TokenCounter: stubCounter{},
		Progress:     func(progress types.Progress) { checkpoints = append(checkpoints, progress) },
	}).Run(context.Background(), types.Configuration{
		Root:               root,
		IncludeLineNumbers: true,
		ProgressInterval:   1,
		OutputPath:         outputPath,
	})
	require.NoError(t, runError)

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	assert.Contains(t, string(content), "   1 | package main\n   2 | func main() {}")
	assert.Equal(t, 5, result.Statistics.TotalTokens)
	assert.Equal(t, 5, result.Records[0].Tokens)

	require.Len(t, checkpoints, 2)
	assert.Equal(t, "main.go", checkpoints[0].CurrentPath)
	assert.False(t, checkpoints[0].Done)
	assert.True(t, checkpoints[1].Done)
	assert.Equal(t, 1, checkpoints[1].AcceptedFiles)
}

func TestRunIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":  "# generated\ngen/\n!gen/keep.go\n",
		"gen/out.go":  "package gen",
		"src/main.go": "package main",
	})
	configuration := types.Configuration{Root: root, OutputPath: filepath.Join(t.TempDir(), "export.txt")}

	withoutIgnore, runError := export.NewEngine(export.Options{}).Run(context.Background(), configuration)
	require.NoError(t, runError)
	assert.Equal(t, 2, withoutIgnore.Statistics.TotalFiles)

	configuration.RespectIgnoreFile = true
	withIgnore, runError := export.NewEngine(export.Options{}).Run(context.Background(), configuration)
	require.NoError(t, runError)
	assert.Equal(t, 1, withIgnore.Statistics.TotalFiles)
	assert.Equal(t, "src/main.go", withIgnore.Records[0].RelativePath)
}

func TestRunOutputInsideRootIsNotExported(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha", "export.txt": "stale"})
	outputPath := filepath.Join(root, "export.txt")

	result, runError := export.NewEngine(export.Options{}).Run(context.Background(), types.Configuration{Root: root, IncludeHidden: true, OutputPath: outputPath})
	require.NoError(t, runError)
	assert.Equal(t, 1, result.Statistics.TotalFiles)
	assert.Equal(t, "a.txt", result.Records[0].RelativePath)
	// the stale destination, its lock and its temporary file are all offered while hidden files are included
	assert.Equal(t, 3, result.Statistics.IgnoredFiles)
	assert.Equal(t, 4, result.Statistics.Candidates())

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	assert.NotContains(t, string(content), "stale")
}

func TestRunReadFailureIsRecordedAndRunContinues(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha", "b.txt": "beta", "c.txt": "gamma"})
	outputPath := filepath.Join(t.TempDir(), "export.txt")
	vanished := filepath.Join(root, "b.txt")

	engine := export.NewEngine(export.Options{
		ReadFile: func(path string) ([]byte, error) {
			if path == vanished {
				return nil, os.ErrNotExist
			}
			return os.ReadFile(path)
		},
	})
	result, runError := engine.Run(context.Background(), types.Configuration{Root: root, OutputPath: outputPath})
	require.NoError(t, runError)

	assert.Equal(t, 2, result.Statistics.TotalFiles)
	assert.Equal(t, 1, result.Statistics.ErrorFiles)
	assert.Equal(t, 3, result.Statistics.Candidates())
	require.Len(t, result.Records, 2)
	assert.Equal(t, "a.txt", result.Records[0].RelativePath)
	assert.Equal(t, "c.txt", result.Records[1].RelativePath)

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	exported := string(content)
	assert.Contains(t, exported, "// ERROR: b.txt: read b.txt: "+os.ErrNotExist.Error()+"\n")
	assert.Contains(t, exported, "gamma")
}

func TestRunFailures(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	testCases := []struct {
		name          string
		configuration types.Configuration
		expectedError error
	}{
		{
			name:          "root is a file",
			configuration: types.Configuration{Root: filepath.Join(root, "file.txt"), OutputPath: filepath.Join(t.TempDir(), "out.txt")},
			expectedError: export.ErrRootNotDirectory,
		},
		{
			name:          "root is missing",
			configuration: types.Configuration{Root: filepath.Join(root, "missing"), OutputPath: filepath.Join(t.TempDir(), "out.txt")},
			expectedError: os.ErrNotExist,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, runError := export.NewEngine(export.Options{}).Run(context.Background(), testCase.configuration)
			require.ErrorIs(t, runError, testCase.expectedError)
			_, statError := os.Stat(testCase.configuration.OutputPath)
			assert.True(t, os.IsNotExist(statError))
		})
	}
}

func TestRunOutputLocked(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha"})
	outputPath := filepath.Join(t.TempDir(), "export.txt")

	held, createError := artifact.Create(outputPath)
	require.NoError(t, createError)
	defer held.Abort()

	_, runError := export.NewEngine(export.Options{}).Run(context.Background(), types.Configuration{Root: root, OutputPath: outputPath})
	require.ErrorIs(t, runError, export.ErrOutputLocked)
}

func TestRunCancelledPublishesNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	outputPath := filepath.Join(t.TempDir(), "export.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := export.NewEngine(export.Options{}).Run(ctx, types.Configuration{Root: root, OutputPath: outputPath})
	require.ErrorIs(t, runError, context.Canceled)
	entries, listError := os.ReadDir(filepath.Dir(outputPath))
	require.NoError(t, listError)
	assert.Empty(t, entries)
}
