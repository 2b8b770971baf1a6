package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/codeagg/internal/commands"
)

// writeTree creates files under root; keys are slash-separated relative paths.
func writeTree(testingInstance *testing.T, root string, files map[string]string) {
	testingInstance.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(testingInstance, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(testingInstance, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func collectWalk(testingInstance *testing.T, options commands.WalkOptions) []commands.WalkEvent {
	testingInstance.Helper()
	var events []commands.WalkEvent
	for event, walkError := range commands.Walk(context.Background(), options) {
		require.NoError(testingInstance, walkError)
		events = append(events, event)
	}
	return events
}

func filePaths(events []commands.WalkEvent) []string {
	var paths []string
	for _, event := range events {
		if event.Kind == commands.WalkEventFile {
			paths = append(paths, event.RelativePath)
		}
	}
	return paths
}

func intPointer(value int) *int {
	return &value
}
