// Package commands contains the traversal core shared by every codeagg command.
package commands

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/temirov/codeagg/internal/utils"
)

const (
	errorReadRootFormat      = "reading root directory %s: %w"
	errorReadDirectoryFormat = "reading directory %s: %v"
)

// WalkEventKind tags the entries produced by Walk.
type WalkEventKind int

const (
	WalkEventEnterDirectory WalkEventKind = iota
	WalkEventFile
)

// WalkEvent is one entry of a walk. Depth is the number of directories
// between the root and the entry's containing directory: files in the root
// have depth 0, a directory directly under the root and the files inside it
// have depth 1.
type WalkEvent struct {
	Kind         WalkEventKind
	AbsolutePath string
	RelativePath string
	Name         string
	Depth        int
}

// WalkOptions configure a walk.
type WalkOptions struct {
	Root          string
	Matcher       *ExclusionMatcher
	IncludeHidden bool
	// MaxDepth bounds the walk; nil walks the whole tree.
	MaxDepth *int
}

// DirectoryError reports a subdirectory that could not be read. The walk
// continues with the directory's siblings.
type DirectoryError struct {
	AbsolutePath string
	RelativePath string
	Err          error
}

func (directoryError *DirectoryError) Error() string {
	return fmt.Sprintf(errorReadDirectoryFormat, directoryError.RelativePath, directoryError.Err)
}

func (directoryError *DirectoryError) Unwrap() error {
	return directoryError.Err
}

// Walk lazily traverses options.Root depth first in name order.
//
// Hidden entries are skipped unless IncludeHidden is set. Directories matched
// by the exclusion matcher are pruned without being read. Symbolic links to
// directories are not followed. A subdirectory read failure is yielded as a
// *DirectoryError and the walk goes on; a root read failure or a cancelled
// context is yielded once and ends the walk. Breaking out of the range loop
// stops the traversal before the next entry is read.
func Walk(ctx context.Context, options WalkOptions) iter.Seq2[WalkEvent, error] {
	return func(yield func(WalkEvent, error) bool) {
		absoluteRoot, absolutePathError := filepath.Abs(options.Root)
		if absolutePathError != nil {
			yield(WalkEvent{}, fmt.Errorf(errorReadRootFormat, options.Root, absolutePathError))
			return
		}
		rootEntries, readRootError := os.ReadDir(absoluteRoot)
		if readRootError != nil {
			yield(WalkEvent{}, fmt.Errorf(errorReadRootFormat, absoluteRoot, readRootError))
			return
		}
		walker := directoryWalker{context: ctx, options: options, yield: yield}
		walker.visitEntries(absoluteRoot, "", 0, rootEntries)
	}
}

type directoryWalker struct {
	context context.Context
	options WalkOptions
	yield   func(WalkEvent, error) bool
}

// visitEntries returns false once the consumer asked to stop.
func (walker *directoryWalker) visitEntries(directoryPath string, relativeDirectory string, depth int, directoryEntries []fs.DirEntry) bool {
	for _, directoryEntry := range directoryEntries {
		if contextError := walker.context.Err(); contextError != nil {
			walker.yield(WalkEvent{}, contextError)
			return false
		}
		entryName := directoryEntry.Name()
		if !walker.options.IncludeHidden && utils.IsHidden(entryName) {
			continue
		}
		entryPath := filepath.Join(directoryPath, entryName)
		relativePath := utils.JoinRelative(relativeDirectory, entryName)

		isDirectory, isRegular := classifyEntry(directoryEntry, entryPath)
		if isDirectory {
			if !walker.visitDirectory(entryPath, relativePath, depth+1) {
				return false
			}
			continue
		}
		if !isRegular {
			continue
		}
		event := WalkEvent{
			Kind:         WalkEventFile,
			AbsolutePath: entryPath,
			RelativePath: relativePath,
			Name:         entryName,
			Depth:        depth,
		}
		if !walker.yield(event, nil) {
			return false
		}
	}
	return true
}

func (walker *directoryWalker) visitDirectory(directoryPath string, relativePath string, depth int) bool {
	if walker.options.MaxDepth != nil && depth > *walker.options.MaxDepth {
		return true
	}
	if walker.options.Matcher.IsExcluded(relativePath) {
		return true
	}
	enterEvent := WalkEvent{
		Kind:         WalkEventEnterDirectory,
		AbsolutePath: directoryPath,
		RelativePath: relativePath,
		Name:         filepath.Base(directoryPath),
		Depth:        depth,
	}
	if !walker.yield(enterEvent, nil) {
		return false
	}
	directoryEntries, readDirectoryError := os.ReadDir(directoryPath)
	if readDirectoryError != nil {
		return walker.yield(WalkEvent{}, &DirectoryError{
			AbsolutePath: directoryPath,
			RelativePath: relativePath,
			Err:          readDirectoryError,
		})
	}
	return walker.visitEntries(directoryPath, relativePath, depth, directoryEntries)
}

// classifyEntry resolves symbolic links to regular files. Links to
// directories and other special files are reported as neither.
func classifyEntry(directoryEntry fs.DirEntry, entryPath string) (isDirectory bool, isRegular bool) {
	entryType := directoryEntry.Type()
	if entryType&fs.ModeSymlink != 0 {
		targetInfo, statError := os.Stat(entryPath)
		if statError != nil {
			return false, false
		}
		return false, targetInfo.Mode().IsRegular()
	}
	if directoryEntry.IsDir() {
		return true, false
	}
	return false, entryType.IsRegular()
}
