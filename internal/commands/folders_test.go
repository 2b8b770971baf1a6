package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/codeagg/internal/commands"
	"github.com/temirov/codeagg/internal/types"
)

func folderPaths(folders []types.FolderNode) []string {
	var paths []string
	for _, folder := range folders {
		paths = append(paths, folder.RelativePath)
	}
	return paths
}

func TestEnumerateFolders(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	writeTree(testingInstance, root, map[string]string{
		"src/main.go":       "x",
		"src/internal/a.go": "x",
		"docs/readme.md":    "x",
		".git/config":       "x",
		"src/.cache/blob":   "x",
	})
	testCases := []struct {
		name     string
		maxDepth int
		expected []string
	}{
		{name: "depth zero returns nothing", maxDepth: 0, expected: nil},
		{name: "depth one returns top level", maxDepth: 1, expected: []string{"docs", "src"}},
		{name: "depth two includes nested", maxDepth: 2, expected: []string{"docs", "src", "src/internal"}},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(testingInstance *testing.T) {
			folders, enumerateError := commands.EnumerateFolders(context.Background(), commands.FolderOptions{Root: root, MaxDepth: testCase.maxDepth})
			require.NoError(testingInstance, enumerateError)
			assert.Equal(testingInstance, testCase.expected, folderPaths(folders))
		})
	}
}

func TestEnumerateFoldersLevelsAndFields(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	writeTree(testingInstance, root, map[string]string{"a/b/file.txt": "x"})
	folders, enumerateError := commands.EnumerateFolders(context.Background(), commands.FolderOptions{Root: root, MaxDepth: 5})
	require.NoError(testingInstance, enumerateError)
	require.Len(testingInstance, folders, 2)
	assert.Equal(testingInstance, types.FolderNode{AbsolutePath: filepath.Join(root, "a"), Name: "a", RelativePath: "a", Level: 1}, folders[0])
	assert.Equal(testingInstance, types.FolderNode{AbsolutePath: filepath.Join(root, "a", "b"), Name: "b", RelativePath: "a/b", Level: 2}, folders[1])
}

func TestEnumerateFoldersOnlyNestedAtDepthZero(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	require.NoError(testingInstance, os.MkdirAll(filepath.Join(root, "outer", "inner"), 0o755))
	folders, enumerateError := commands.EnumerateFolders(context.Background(), commands.FolderOptions{Root: root, MaxDepth: 0})
	require.NoError(testingInstance, enumerateError)
	assert.Empty(testingInstance, folders)
}

func TestEnumerateFoldersRespectsMatcher(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	writeTree(testingInstance, root, map[string]string{"keep/x": "x", "vendor/y": "y"})
	matcher := commands.NewExclusionMatcher([]string{"vendor"}, nil, nil)
	folders, enumerateError := commands.EnumerateFolders(context.Background(), commands.FolderOptions{Root: root, MaxDepth: 1, Matcher: matcher})
	require.NoError(testingInstance, enumerateError)
	assert.Equal(testingInstance, []string{"keep"}, folderPaths(folders))
}
