package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/temirov/codeagg/internal/types"
)

// FolderOptions configure EnumerateFolders.
type FolderOptions struct {
	Root string
	// MaxDepth is the deepest folder level returned; folders directly under
	// the root are level 1, so zero returns nothing.
	MaxDepth int
	Matcher  *ExclusionMatcher
	Warn     func(message string)
}

// EnumerateFolders lists the non-hidden directories under options.Root up to
// options.MaxDepth, sorted by relative path.
func EnumerateFolders(ctx context.Context, options FolderOptions) ([]types.FolderNode, error) {
	if options.MaxDepth <= 0 {
		return nil, nil
	}
	absoluteRoot, absolutePathError := filepath.Abs(options.Root)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorReadRootFormat, options.Root, absolutePathError)
	}
	if options.Warn == nil {
		options.Warn = func(string) {}
	}

	maxDepth := options.MaxDepth
	walkOptions := WalkOptions{Root: absoluteRoot, Matcher: options.Matcher, MaxDepth: &maxDepth}
	var folders []types.FolderNode
	for event, walkError := range Walk(ctx, walkOptions) {
		if walkError != nil {
			var directoryError *DirectoryError
			if errors.As(walkError, &directoryError) {
				options.Warn(fmt.Sprintf(warningSkipSubdirFormat, directoryError.RelativePath, directoryError.Err))
				continue
			}
			return nil, walkError
		}
		if event.Kind != WalkEventEnterDirectory {
			continue
		}
		folders = append(folders, types.FolderNode{
			AbsolutePath: event.AbsolutePath,
			Name:         event.Name,
			RelativePath: event.RelativePath,
			Level:        event.Depth,
		})
	}
	sort.Slice(folders, func(left, right int) bool {
		return folders[left].RelativePath < folders[right].RelativePath
	})
	return folders, nil
}
