package commands_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temirov/codeagg/internal/commands"
	"github.com/temirov/codeagg/internal/types"
)

func fileEvent(root string, relativePath string) commands.WalkEvent {
	return commands.WalkEvent{
		Kind:         commands.WalkEventFile,
		AbsolutePath: filepath.Join(root, filepath.FromSlash(relativePath)),
		RelativePath: relativePath,
		Name:         filepath.Base(relativePath),
	}
}

func TestFileFilterClassify(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	writeTree(testingInstance, root, map[string]string{
		"main.py":         "print('hi')\n",
		"data.py":         "ab\x00cd",
		"notes.md":        "# notes\n",
		"skip.tmp":        "tmp",
		"logs/server.log": "line\n",
		"exact.py":        strings.Repeat("x", 16),
		"over.py":         strings.Repeat("x", 17),
		".secret.py":      "x",
		"README":          "readme",
	})
	configuration := types.Configuration{
		IncludeExtensions: []string{".py", ".md", ".log", ".tmp"},
		ExcludeExtensions: []string{"TMP"},
		MaxFileSizeBytes:  16,
	}
	matcher := commands.NewExclusionMatcher(nil, nil, []string{"logs/"})
	filter := commands.NewFileFilter(configuration, matcher)

	testCases := []struct {
		name            string
		relativePath    string
		expectedOutcome types.FileOutcome
		expectedReason  string
	}{
		{name: "accepted text", relativePath: "main.py", expectedOutcome: types.OutcomeAccepted},
		{name: "binary regardless of extension", relativePath: "data.py", expectedOutcome: types.OutcomeBinary, expectedReason: commands.ReasonBinary},
		{name: "excluded extension beats include", relativePath: "skip.tmp", expectedOutcome: types.OutcomeIgnored, expectedReason: commands.ReasonExcludedExtension},
		{name: "ignore pattern", relativePath: "logs/server.log", expectedOutcome: types.OutcomeIgnored, expectedReason: commands.ReasonIgnorePattern},
		{name: "size at limit", relativePath: "exact.py", expectedOutcome: types.OutcomeAccepted},
		{name: "size above limit", relativePath: "over.py", expectedOutcome: types.OutcomeOversized, expectedReason: commands.ReasonOversized},
		{name: "hidden file", relativePath: ".secret.py", expectedOutcome: types.OutcomeIgnored, expectedReason: commands.ReasonHidden},
		{name: "not in include list", relativePath: "README", expectedOutcome: types.OutcomeIgnored, expectedReason: commands.ReasonNotIncluded},
		{name: "missing file", relativePath: "gone.py", expectedOutcome: types.OutcomeError, expectedReason: commands.ReasonStatFailed},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(testingInstance *testing.T) {
			classification := filter.Classify(fileEvent(root, testCase.relativePath))
			assert.Equal(testingInstance, testCase.expectedOutcome, classification.Outcome)
			assert.Equal(testingInstance, testCase.expectedReason, classification.Reason)
			if testCase.expectedOutcome == types.OutcomeError {
				assert.Error(testingInstance, classification.Err)
			}
		})
	}
}

func TestFileFilterEmptyIncludeAcceptsAnyExtension(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	writeTree(testingInstance, root, map[string]string{"Makefile": "all:\n", "script.zz": "x"})
	filter := commands.NewFileFilter(types.Configuration{}, nil)
	assert.Equal(testingInstance, types.OutcomeAccepted, filter.Classify(fileEvent(root, "Makefile")).Outcome)
	assert.Equal(testingInstance, types.OutcomeAccepted, filter.Classify(fileEvent(root, "script.zz")).Outcome)
}
