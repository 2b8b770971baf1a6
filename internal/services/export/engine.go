// Package export implements the aggregation run that produces the text export.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/codeagg/internal/artifact"
	"github.com/temirov/codeagg/internal/commands"
	"github.com/temirov/codeagg/internal/config"
	"github.com/temirov/codeagg/internal/output"
	"github.com/temirov/codeagg/internal/registry"
	"github.com/temirov/codeagg/internal/tokenizer"
	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	errorOutputRequired     = "output path is required"
	errorCreateOutputFormat = "create export %s: %w"
	errorWriteOutputFormat  = "write export %s: %w"
	errorPublishFormat      = "publish export %s: %w"
	errorReadFileFormat     = "read %s: %w"

	reservedOutputReason = "reserved output"
)

// Run-level failures reported through errors.Is.
var (
	ErrRootNotDirectory = commands.ErrRootNotDirectory
	ErrOutputLocked     = artifact.ErrLocked
)

// ProgressFunc receives cooperative checkpoints while a run is in flight.
type ProgressFunc func(types.Progress)

// Options wire the engine's collaborators. Zero values are usable.
type Options struct {
	Logger       *zap.Logger
	Registry     *registry.Registry
	TokenCounter tokenizer.Counter
	Progress     ProgressFunc
	// SkipPaths name other outputs written concurrently, such as an archive
	// inside the root. They and their lock and temporary files are never
	// candidates.
	SkipPaths []string
	Clock     func() time.Time
	// ReadFile loads accepted files. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Result is the outcome of one run. Statistics are populated even when Run
// returns an error.
type Result struct {
	ExportPath string
	Statistics types.RunStatistics
	Records    []types.FileRecord
}

// Engine produces exports. It holds no per-run state, so one Engine can
// serve several runs, including concurrent ones.
type Engine struct {
	options Options
}

// NewEngine constructs an Engine.
func NewEngine(options Options) *Engine {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Registry == nil {
		options.Registry = registry.Default()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.ReadFile == nil {
		options.ReadFile = os.ReadFile
	}
	return &Engine{options: options}
}

type runState struct {
	engine        *Engine
	configuration types.Configuration
	logger        *zap.Logger
	filter        *commands.FileFilter
	writer        *bufio.Writer
	statistics    types.RunStatistics
	records       []types.FileRecord
	// reservedOutputs are artifacts being written, possibly inside the root.
	reservedOutputs []string
}

// Run walks configuration.Root and writes the export to configuration.OutputPath.
// Per-file problems are counted and logged; the run fails only when the root
// is unusable, the output cannot be written, or ctx is cancelled. A failed
// run publishes nothing.
func (engine *Engine) Run(ctx context.Context, configuration types.Configuration) (Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	state := &runState{
		engine:        engine,
		configuration: configuration,
		logger:        engine.options.Logger.With(zap.String("run_id", runID)),
		statistics:    types.NewRunStatistics(runID),
	}
	finish := func(exportPath string, runError error) (Result, error) {
		state.statistics.Duration = time.Since(startTime)
		return Result{ExportPath: exportPath, Statistics: state.statistics, Records: state.records}, runError
	}

	absoluteRoot, rootError := commands.ResolveRoot(configuration.Root)
	if rootError != nil {
		return finish("", rootError)
	}
	if configuration.OutputPath == "" {
		return finish("", errors.New(errorOutputRequired))
	}

	var ignorePatterns []string
	if configuration.RespectIgnoreFile {
		loadedPatterns, loadError := config.LoadIgnorePatterns(absoluteRoot, state.logger)
		if loadError != nil {
			state.logger.Warn("ignore file unreadable, continuing without it", zap.Error(loadError))
		}
		ignorePatterns = loadedPatterns
	}
	matcher := commands.NewExclusionMatcher(configuration.ExcludeDirectories, configuration.ExcludeDirectoryNames, ignorePatterns)
	state.filter = commands.NewFileFilter(configuration, matcher)

	exportArtifact, createError := artifact.Create(configuration.OutputPath)
	if createError != nil {
		return finish("", fmt.Errorf(errorCreateOutputFormat, configuration.OutputPath, createError))
	}
	state.reservedOutputs = reservedOutputs(exportArtifact.Path(), engine.options.SkipPaths)
	state.writer = bufio.NewWriter(exportArtifact)

	state.logger.Info("export started",
		zap.String("root", absoluteRoot),
		zap.String("output", exportArtifact.Path()))

	header := output.ExportHeader{
		Generated:           engine.options.Clock(),
		Root:                absoluteRoot,
		ExcludedDirectories: matcher.ExcludedDirectories(),
	}
	runError := output.WriteRunHeader(state.writer, header)
	if runError != nil {
		runError = fmt.Errorf(errorWriteOutputFormat, exportArtifact.Path(), runError)
	} else {
		runError = state.walk(ctx, absoluteRoot, matcher)
	}
	if runError == nil {
		if flushError := state.writer.Flush(); flushError != nil {
			runError = fmt.Errorf(errorWriteOutputFormat, exportArtifact.Path(), flushError)
		}
	}
	if runError != nil {
		exportArtifact.Abort()
		state.logger.Warn("export aborted", zap.Error(runError))
		return finish("", runError)
	}
	if commitError := exportArtifact.Commit(); commitError != nil {
		return finish("", fmt.Errorf(errorPublishFormat, exportArtifact.Path(), commitError))
	}

	state.reportProgress("", true)
	result, _ := finish(exportArtifact.Path(), nil)
	state.logger.Info("export finished",
		zap.Int("files", result.Statistics.TotalFiles),
		zap.Int("lines", result.Statistics.TotalLines),
		zap.Int("errors", result.Statistics.ErrorFiles),
		zap.Duration("duration", result.Statistics.Duration))
	return result, nil
}

func (state *runState) walk(ctx context.Context, absoluteRoot string, matcher *commands.ExclusionMatcher) error {
	walkOptions := commands.WalkOptions{
		Root:          absoluteRoot,
		Matcher:       matcher,
		IncludeHidden: state.configuration.IncludeHidden,
		MaxDepth:      state.configuration.MaxTraversalDepth,
	}
	for event, walkError := range commands.Walk(ctx, walkOptions) {
		if walkError != nil {
			var directoryError *commands.DirectoryError
			if errors.As(walkError, &directoryError) {
				state.logger.Warn("skipping unreadable directory",
					zap.String("path", directoryError.RelativePath),
					zap.Error(directoryError.Err))
				continue
			}
			return walkError
		}
		if event.Kind != commands.WalkEventFile {
			continue
		}
		if isReserved(state.reservedOutputs, event.AbsolutePath) {
			state.statistics.Record(types.OutcomeIgnored)
			state.logger.Debug("file skipped",
				zap.String("path", event.RelativePath),
				zap.String("outcome", string(types.OutcomeIgnored)),
				zap.String("reason", reservedOutputReason))
			continue
		}
		if processError := state.processCandidate(event); processError != nil {
			return processError
		}
	}
	return nil
}

// processCandidate returns an error only when the export cannot be written.
func (state *runState) processCandidate(event commands.WalkEvent) error {
	classification := state.filter.Classify(event)
	switch classification.Outcome {
	case types.OutcomeAccepted:
		return state.acceptFile(event)
	case types.OutcomeError:
		state.statistics.Record(types.OutcomeError)
		state.logger.Warn("unable to inspect file",
			zap.String("path", event.RelativePath),
			zap.Error(classification.Err))
		return nil
	default:
		state.statistics.Record(classification.Outcome)
		state.logger.Debug("file skipped",
			zap.String("path", event.RelativePath),
			zap.String("outcome", string(classification.Outcome)),
			zap.String("reason", classification.Reason))
		return nil
	}
}

func (state *runState) acceptFile(event commands.WalkEvent) error {
	encodingName := utils.DetectEncoding(event.AbsolutePath)
	data, readError := state.engine.options.ReadFile(event.AbsolutePath)
	if readError != nil {
		state.statistics.Record(types.OutcomeError)
		state.logger.Warn("unable to read file", zap.String("path", event.RelativePath), zap.Error(readError))
		if writeError := output.WriteErrorBlock(state.writer, event.RelativePath, fmt.Errorf(errorReadFileFormat, event.RelativePath, readError)); writeError != nil {
			return fmt.Errorf(errorWriteOutputFormat, state.configuration.OutputPath, writeError)
		}
		return nil
	}

	content := utils.DecodeText(data, encodingName)
	record := types.FileRecord{
		AbsolutePath: event.AbsolutePath,
		RelativePath: event.RelativePath,
		TypeLabel:    state.engine.options.Registry.LabelForName(event.Name),
		SizeBytes:    int64(len(data)),
		LineCount:    output.CountLines(content),
		Encoding:     encodingName,
	}
	if state.engine.options.TokenCounter != nil {
		tokens, countError := tokenizer.CountText(state.engine.options.TokenCounter, content)
		if countError != nil {
			state.logger.Warn("token counting failed", zap.String("path", event.RelativePath), zap.Error(countError))
		}
		record.Tokens = tokens
	}

	if writeError := output.WriteFileBlock(state.writer, record, content, state.configuration.IncludeLineNumbers); writeError != nil {
		return fmt.Errorf(errorWriteOutputFormat, state.configuration.OutputPath, writeError)
	}
	state.statistics.Accept(record)
	state.records = append(state.records, record)

	interval := state.configuration.ProgressInterval
	if interval > 0 && state.statistics.TotalFiles%interval == 0 {
		state.reportProgress(event.RelativePath, false)
	}
	return nil
}

func (state *runState) reportProgress(currentPath string, done bool) {
	if state.engine.options.Progress == nil {
		return
	}
	state.engine.options.Progress(types.Progress{
		AcceptedFiles: state.statistics.TotalFiles,
		Candidates:    state.statistics.Candidates(),
		CurrentPath:   currentPath,
		Done:          done,
	})
}

func reservedOutputs(ownOutput string, otherOutputs []string) []string {
	reserved := []string{ownOutput}
	for _, otherOutput := range otherOutputs {
		if absoluteOutput, absoluteError := filepath.Abs(otherOutput); absoluteError == nil {
			reserved = append(reserved, absoluteOutput)
		}
	}
	return reserved
}

func isReserved(reserved []string, candidate string) bool {
	for _, destination := range reserved {
		if artifact.Owns(destination, candidate) {
			return true
		}
	}
	return false
}
