package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/codeagg/internal/registry"
	"github.com/temirov/codeagg/internal/types"
)

type recordingCopier struct {
	copied []string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

type commandHarness struct {
	app    *application
	copier *recordingCopier
	picked []string
}

func newCommandHarness(t *testing.T) *commandHarness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	harness := &commandHarness{copier: &recordingCopier{}}
	harness.app = &application{
		logger:   zap.NewNop(),
		registry: registry.Default(),
		copier:   harness.copier,
		pickFolders: func(candidates []string) ([]string, error) {
			harness.picked = candidates
			return []string{candidates[len(candidates)-1]}, nil
		},
		now: func() time.Time {
			return time.Date(2024, time.March, 4, 5, 6, 7, 0, time.Local)
		},
		isTerminal: func(io.Writer) bool { return false },
		newLogger:  func(string) (*zap.Logger, error) { return zap.NewNop(), nil },
	}
	return harness
}

func (harness *commandHarness) run(arguments ...string) (string, string, error) {
	rootCommand := createRootCommand(harness.app)
	var standardOutput, errorOutput bytes.Buffer
	rootCommand.SetOut(&standardOutput)
	rootCommand.SetErr(&errorOutput)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	executeError := rootCommand.Execute()
	return standardOutput.String(), errorOutput.String(), executeError
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func scenarioRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":     "import os\nprint(os.getcwd())\n",
		"b.bin":    "abcd\x00efgh",
		"sub/c.py": "print('c')\n",
	})
	return root
}

func TestExportCommandWritesExport(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)
	outputPath := filepath.Join(t.TempDir(), "export.txt")

	standardOutput, errorOutput, runError := harness.run("export", root, "-o", outputPath, "-e", "sub", "--all-extensions")
	require.NoError(t, runError)
	assert.Equal(t, outputPath+"\n", standardOutput)
	assert.Contains(t, errorOutput, "Export complete")
	assert.Contains(t, errorOutput, "Binary:")

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	assert.Equal(t, 1, strings.Count(string(content), "// FILE: "))
	assert.Contains(t, string(content), "// RELATIVE: a.py")
	assert.Contains(t, string(content), "Excluded Folders: sub")
}

func TestExportCommandAliasWithArchiveAndList(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)
	outputDirectory := t.TempDir()
	outputPath := filepath.Join(outputDirectory, "export.txt")

	standardOutput, _, runError := harness.run("x", root, "-o", outputPath, "--include-ext", ".py", "--zip", "--archive-format", "tgz", "--list", "--list-format", "json")
	require.NoError(t, runError)

	var records []types.FileRecord
	require.NoError(t, json.Unmarshal([]byte(standardOutput), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a.py", records[0].RelativePath)
	assert.Equal(t, "sub/c.py", records[1].RelativePath)

	assert.FileExists(t, outputPath)
	assert.FileExists(t, filepath.Join(outputDirectory, "export.tar.gz"))
}

func TestExportCommandCopiesToClipboard(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)
	outputPath := filepath.Join(t.TempDir(), "export.txt")

	_, _, runError := harness.run("export", root, "-o", outputPath, "--copy", "yes", "--line-numbers")
	require.NoError(t, runError)

	content, readError := os.ReadFile(outputPath)
	require.NoError(t, readError)
	require.Len(t, harness.copier.copied, 1)
	assert.Equal(t, string(content), harness.copier.copied[0])
	assert.Contains(t, string(content), "   1 | import os")
}

func TestExportCommandDefaultOutputName(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)
	outputDirectory := t.TempDir()
	configurationPath := filepath.Join(t.TempDir(), "codeagg.yaml")
	configuration := "export:\n  output_directory: " + outputDirectory + "\n  exclude_directories: [sub]\n"
	require.NoError(t, os.WriteFile(configurationPath, []byte(configuration), 0o600))

	standardOutput, _, runError := harness.run("--config", configurationPath, "export", root)
	require.NoError(t, runError)

	expectedPath := filepath.Join(outputDirectory, "code_export_20240304_050607.txt")
	assert.Equal(t, expectedPath+"\n", standardOutput)
	content, readError := os.ReadFile(expectedPath)
	require.NoError(t, readError)
	assert.NotContains(t, string(content), "c.py")
}

func TestExportCommandRejectsBadInput(t *testing.T) {
	root := scenarioRoot(t)
	testCases := []struct {
		name      string
		arguments []string
		message   string
	}{
		{name: "unknown_preset", arguments: []string{"export", root, "--preset", "nope"}, message: "unknown preset"},
		{name: "root_is_file", arguments: []string{"export", filepath.Join(root, "a.py")}, message: "not a directory"},
		{name: "bad_size", arguments: []string{"export", root, "--max-size", "lots"}, message: "invalid size"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			outputPath := filepath.Join(t.TempDir(), "export.txt")
			_, _, runError := harness.run(append(testCase.arguments, "-o", outputPath)...)
			require.Error(t, runError)
			assert.Contains(t, runError.Error(), testCase.message)
			assert.NoFileExists(t, outputPath)
		})
	}
}

func TestArchiveCommand(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)
	archivePath := filepath.Join(t.TempDir(), "code.zip")

	standardOutput, errorOutput, runError := harness.run("a", root, "-o", archivePath, "--include-ext", ".py")
	require.NoError(t, runError)
	assert.Equal(t, archivePath+"\n", standardOutput)
	assert.Contains(t, errorOutput, "(2 entries)")
	assert.FileExists(t, archivePath)
}

func TestTreeCommand(t *testing.T) {
	harness := newCommandHarness(t)
	root := scenarioRoot(t)

	standardOutput, _, runError := harness.run("tree", root, "--depth", "1")
	require.NoError(t, runError)
	expected := strings.Join([]string{
		filepath.Base(root) + "/",
		"  + a.py",
		"  - b.bin",
		"  sub/",
		"    + c.py",
	}, "\n") + "\n"
	assert.Equal(t, expected, standardOutput)
}

func TestFoldersCommand(t *testing.T) {
	harness := newCommandHarness(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"api/v1/handler.go": "package v1",
		"web/index.html":    "<html></html>",
		".cache/blob":       "x",
	})

	standardOutput, _, runError := harness.run("folders", root, "--depth", "1")
	require.NoError(t, runError)
	assert.Equal(t, "api/\nweb/\n", standardOutput)

	standardOutput, _, runError = harness.run("f", root, "--pick")
	require.NoError(t, runError)
	assert.Equal(t, []string{"api", "api/v1", "web"}, harness.picked)
	assert.Equal(t, "-e web\n", standardOutput)
}

func TestTypesCommand(t *testing.T) {
	harness := newCommandHarness(t)

	standardOutput, _, runError := harness.run("types", "--preset", "web")
	require.NoError(t, runError)
	assert.Contains(t, standardOutput, ".html")
	assert.NotContains(t, standardOutput, ".py ")
}
