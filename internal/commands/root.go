package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRootNotDirectory reports a root path that exists but is not a directory.
var ErrRootNotDirectory = errors.New("root is not a directory")

const (
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	errorStatRootFormat     = "root %s: %w"
)

// ResolveRoot returns the absolute form of root after checking that it is an
// existing directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	absoluteRoot, absolutePathError := filepath.Abs(root)
	if absolutePathError != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, root, absolutePathError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		return "", fmt.Errorf(errorStatRootFormat, absoluteRoot, statError)
	}
	if !rootInfo.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDirectory, absoluteRoot)
	}
	return absoluteRoot, nil
}
