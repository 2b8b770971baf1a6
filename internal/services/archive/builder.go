// Package archive packages the accepted file set of a tree into a zip or
// tar.gz archive.
package archive

import (
	stdzip "archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"go.uber.org/zap"

	"github.com/temirov/codeagg/internal/artifact"
	"github.com/temirov/codeagg/internal/commands"
	"github.com/temirov/codeagg/internal/config"
	"github.com/temirov/codeagg/internal/types"
)

const (
	errorOutputRequired       = "archive output path is required"
	errorCreateArchiveFormat  = "create archive %s: %w"
	errorInspectEntryFormat   = "inspect %s: %w"
	errorWriteArchiveFormat   = "write archive %s after %d entries: %w"
	errorPublishArchiveFormat = "publish archive %s: %w"
)

// ErrUnsupportedFormat reports an archive format other than zip or tar.gz.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Request describes one archive build.
type Request struct {
	Configuration types.Configuration
	OutputPath    string
	// Format is types.ArchiveFormatZip or types.ArchiveFormatTarGz. Empty means zip.
	Format string
	// SkipPaths name other outputs written concurrently. They and their lock
	// and temporary files are never archived.
	SkipPaths []string
}

// Result reports the published archive. EntryCount is the number of entries
// fully written, also on failure.
type Result struct {
	ArchivePath string
	EntryCount  int
}

// Builder writes archives.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder constructs a Builder. A nil logger discards output.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

type archiver interface {
	Archive(ctx context.Context, output io.Writer, files []archives.FileInfo) error
}

// formatFor returns the archiver registered for formatName.
func formatFor(formatName string) (archiver, error) {
	switch strings.ToLower(strings.TrimSpace(formatName)) {
	case "", types.ArchiveFormatZip:
		return archives.Zip{Compression: stdzip.Deflate}, nil
	case types.ArchiveFormatTarGz, "tgz":
		return archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, formatName)
	}
}

// Build walks request.Configuration.Root and writes every file the export
// would accept into the archive, named by its slash-separated relative path.
// Any entry failure aborts the build and nothing is published.
func (builder *Builder) Build(ctx context.Context, request Request) (Result, error) {
	if request.OutputPath == "" {
		return Result{}, errors.New(errorOutputRequired)
	}
	format, formatError := formatFor(request.Format)
	if formatError != nil {
		return Result{}, formatError
	}
	absoluteRoot, rootError := commands.ResolveRoot(request.Configuration.Root)
	if rootError != nil {
		return Result{}, rootError
	}

	archiveArtifact, createError := artifact.Create(request.OutputPath)
	if createError != nil {
		return Result{}, fmt.Errorf(errorCreateArchiveFormat, request.OutputPath, createError)
	}
	reserved := []string{archiveArtifact.Path()}
	for _, skipPath := range request.SkipPaths {
		if absolutePath, absoluteError := filepath.Abs(skipPath); absoluteError == nil {
			reserved = append(reserved, absolutePath)
		}
	}

	entries, collectError := builder.collectEntries(ctx, absoluteRoot, request.Configuration, reserved)
	if collectError != nil {
		archiveArtifact.Abort()
		return Result{}, collectError
	}

	written := 0
	for index := range entries {
		entries[index].Open = trackedOpener(entries[index].Open, entries[index].Size(), &written)
	}
	if archiveError := format.Archive(ctx, archiveArtifact, entries); archiveError != nil {
		archiveArtifact.Abort()
		builder.logger.Warn("archive aborted",
			zap.String("output", archiveArtifact.Path()),
			zap.Int("entries_written", written),
			zap.Error(archiveError))
		return Result{EntryCount: written}, fmt.Errorf(errorWriteArchiveFormat, archiveArtifact.Path(), written, archiveError)
	}
	if commitError := archiveArtifact.Commit(); commitError != nil {
		return Result{EntryCount: written}, fmt.Errorf(errorPublishArchiveFormat, archiveArtifact.Path(), commitError)
	}

	builder.logger.Info("archive written",
		zap.String("output", archiveArtifact.Path()),
		zap.Int("entries", written))
	return Result{ArchivePath: archiveArtifact.Path(), EntryCount: written}, nil
}

func (builder *Builder) collectEntries(ctx context.Context, absoluteRoot string, configuration types.Configuration, reserved []string) ([]archives.FileInfo, error) {
	var ignorePatterns []string
	if configuration.RespectIgnoreFile {
		loadedPatterns, loadError := config.LoadIgnorePatterns(absoluteRoot, builder.logger)
		if loadError != nil {
			builder.logger.Warn("ignore file unreadable, continuing without it", zap.Error(loadError))
		}
		ignorePatterns = loadedPatterns
	}
	matcher := commands.NewExclusionMatcher(configuration.ExcludeDirectories, configuration.ExcludeDirectoryNames, ignorePatterns)
	filter := commands.NewFileFilter(configuration, matcher)

	walkOptions := commands.WalkOptions{
		Root:          absoluteRoot,
		Matcher:       matcher,
		IncludeHidden: configuration.IncludeHidden,
		MaxDepth:      configuration.MaxTraversalDepth,
	}
	var entries []archives.FileInfo
	for event, walkError := range commands.Walk(ctx, walkOptions) {
		if walkError != nil {
			var directoryError *commands.DirectoryError
			if errors.As(walkError, &directoryError) {
				builder.logger.Warn("skipping unreadable directory",
					zap.String("path", directoryError.RelativePath),
					zap.Error(directoryError.Err))
				continue
			}
			return nil, walkError
		}
		if event.Kind != commands.WalkEventFile {
			continue
		}
		if ownedByAny(reserved, event.AbsolutePath) {
			builder.logger.Debug("file skipped",
				zap.String("path", event.RelativePath),
				zap.String("outcome", string(types.OutcomeIgnored)),
				zap.String("reason", "reserved output"))
			continue
		}
		classification := filter.Classify(event)
		if classification.Outcome == types.OutcomeError {
			return nil, classification.Err
		}
		if classification.Outcome != types.OutcomeAccepted {
			continue
		}
		fileInfo, statError := os.Stat(event.AbsolutePath)
		if statError != nil {
			return nil, fmt.Errorf(errorInspectEntryFormat, event.RelativePath, statError)
		}
		absolutePath := event.AbsolutePath
		entries = append(entries, archives.FileInfo{
			FileInfo:      fileInfo,
			NameInArchive: event.RelativePath,
			Open: func() (fs.File, error) {
				return os.Open(absolutePath)
			},
		})
	}
	return entries, nil
}

func ownedByAny(destinations []string, candidate string) bool {
	for _, destination := range destinations {
		if artifact.Owns(destination, candidate) {
			return true
		}
	}
	return false
}

// trackedOpener counts an entry once size bytes were read and the file
// closed. Archivers copy exactly size bytes and may never read io.EOF.
func trackedOpener(open func() (fs.File, error), size int64, written *int) func() (fs.File, error) {
	return func() (fs.File, error) {
		file, openError := open()
		if openError != nil {
			return nil, openError
		}
		return &trackedFile{file: file, remaining: size, written: written}, nil
	}
}

type trackedFile struct {
	file      fs.File
	remaining int64
	failed    bool
	counted   bool
	written   *int
}

func (tracked *trackedFile) Stat() (fs.FileInfo, error) {
	return tracked.file.Stat()
}

func (tracked *trackedFile) Read(buffer []byte) (int, error) {
	bytesRead, readError := tracked.file.Read(buffer)
	tracked.remaining -= int64(bytesRead)
	if readError != nil && !errors.Is(readError, io.EOF) {
		tracked.failed = true
	}
	return bytesRead, readError
}

func (tracked *trackedFile) Close() error {
	closeError := tracked.file.Close()
	if closeError == nil && !tracked.failed && !tracked.counted && tracked.remaining <= 0 {
		*tracked.written++
		tracked.counted = true
	}
	return closeError
}
