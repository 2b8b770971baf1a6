package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/codeagg/internal/registry"
)

const (
	// DefaultTreeDepth is the preview depth used when none is configured.
	DefaultTreeDepth = 3
	// DefaultTreeEntriesPerDirectory caps the file names listed per directory.
	DefaultTreeEntriesPerDirectory = 10

	treeIndentUnit        = "  "
	treeDirectorySuffix   = "/"
	treeKnownFileMarker   = "+ "
	treeUnknownFileMarker = "- "
	treeMoreFilesFormat   = "... and %d more files"
	treeUnreadableSuffix  = " [unreadable]"

	warningSkipSubdirFormat = "Warning: Skipping subdirectory %s due to error: %v"
)

// TreeOptions configure RenderTree.
type TreeOptions struct {
	Root    string
	Matcher *ExclusionMatcher
	// MaxDepth is the deepest directory level shown; files directly in the
	// root are level 0.
	MaxDepth int
	// MaxEntriesPerDirectory caps listed files per directory; zero or less
	// lists every file.
	MaxEntriesPerDirectory int
	IncludeHidden          bool
	Registry               *registry.Registry
	Warn                   func(message string)
}

type treeDirectory struct {
	name        string
	depth       int
	files       []string
	directories []*treeDirectory
	unreadable  bool
}

// RenderTree returns an indented text preview of the tree under options.Root.
// The file cap is display only and has no effect on any other command.
func RenderTree(ctx context.Context, options TreeOptions) (string, error) {
	absoluteRoot, absolutePathError := filepath.Abs(options.Root)
	if absolutePathError != nil {
		return "", fmt.Errorf(errorReadRootFormat, options.Root, absolutePathError)
	}
	if options.Registry == nil {
		options.Registry = registry.Default()
	}
	if options.Warn == nil {
		options.Warn = func(string) {}
	}
	maxDepth := options.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}

	root := &treeDirectory{name: filepath.Base(absoluteRoot)}
	directoriesByPath := map[string]*treeDirectory{"": root}

	walkOptions := WalkOptions{
		Root:          absoluteRoot,
		Matcher:       options.Matcher,
		IncludeHidden: options.IncludeHidden,
		MaxDepth:      &maxDepth,
	}
	for event, walkError := range Walk(ctx, walkOptions) {
		if walkError != nil {
			var directoryError *DirectoryError
			if errors.As(walkError, &directoryError) {
				options.Warn(fmt.Sprintf(warningSkipSubdirFormat, directoryError.RelativePath, directoryError.Err))
				if directory, found := directoriesByPath[directoryError.RelativePath]; found {
					directory.unreadable = true
				}
				continue
			}
			return "", walkError
		}
		parent := directoriesByPath[parentRelativePath(event.RelativePath)]
		if parent == nil {
			continue
		}
		switch event.Kind {
		case WalkEventEnterDirectory:
			directory := &treeDirectory{name: event.Name, depth: event.Depth}
			parent.directories = append(parent.directories, directory)
			directoriesByPath[event.RelativePath] = directory
		case WalkEventFile:
			parent.files = append(parent.files, event.Name)
		}
	}

	var builder strings.Builder
	renderTreeDirectory(&builder, root, options)
	return strings.TrimSuffix(builder.String(), "\n"), nil
}

func renderTreeDirectory(builder *strings.Builder, directory *treeDirectory, options TreeOptions) {
	indent := strings.Repeat(treeIndentUnit, directory.depth)
	builder.WriteString(indent + directory.name + treeDirectorySuffix)
	if directory.unreadable {
		builder.WriteString(treeUnreadableSuffix)
	}
	builder.WriteString("\n")

	childIndent := indent + treeIndentUnit
	shownFiles := directory.files
	if options.MaxEntriesPerDirectory > 0 && len(shownFiles) > options.MaxEntriesPerDirectory {
		shownFiles = shownFiles[:options.MaxEntriesPerDirectory]
	}
	for _, fileName := range shownFiles {
		marker := treeUnknownFileMarker
		if options.Registry.IsKnown(filepath.Ext(fileName)) {
			marker = treeKnownFileMarker
		}
		builder.WriteString(childIndent + marker + fileName + "\n")
	}
	if hiddenCount := len(directory.files) - len(shownFiles); hiddenCount > 0 {
		builder.WriteString(childIndent + fmt.Sprintf(treeMoreFilesFormat, hiddenCount) + "\n")
	}
	for _, child := range directory.directories {
		renderTreeDirectory(builder, child, options)
	}
}

func parentRelativePath(relativePath string) string {
	separatorIndex := strings.LastIndex(relativePath, pathSeparator)
	if separatorIndex < 0 {
		return ""
	}
	return relativePath[:separatorIndex]
}
