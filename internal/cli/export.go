package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/codeagg/internal/config"
	"github.com/temirov/codeagg/internal/output"
	"github.com/temirov/codeagg/internal/services/archive"
	"github.com/temirov/codeagg/internal/services/clipboard"
	"github.com/temirov/codeagg/internal/services/export"
	"github.com/temirov/codeagg/internal/tokenizer"
	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	exportUse              = "export [root]"
	exportAlias            = "x"
	exportShortDescription = "write the text export of a tree (" + exportAlias + ")"
	exportLongDescription  = `Walk root and write every accepted file into one text export.
Files are accepted when they are not hidden, not matched by the ignore file,
not larger than --max-size, not binary, and carry an included extension.`
	exportUsageExample = `  # Export the current directory, skipping vendor and testdata
  codeagg export -e vendor -e testdata

  # Export only Go and Markdown files with line numbers and an archive
  codeagg x --include-ext .go,.md --line-numbers --zip ./service`

	archiveUse              = "archive [root]"
	archiveAlias            = "a"
	archiveShortDescription = "package the accepted files into an archive (" + archiveAlias + ")"
	archiveLongDescription  = `Walk root and write every file the export would accept into a zip or
tar.gz archive whose entry names are the root-relative paths.`

	outputFlagName             = "output"
	outputFlagShorthand        = "o"
	includeExtensionsFlagName  = "include-ext"
	excludeExtensionsFlagName  = "exclude-ext"
	presetFlagName             = "preset"
	allExtensionsFlagName      = "all-extensions"
	excludeDirectoryFlagName   = "exclude-dir"
	excludeDirectoryShorthand  = "e"
	excludeNameFlagName        = "exclude-name"
	lineNumbersFlagName        = "line-numbers"
	ignoreFileFlagName         = "ignore-file"
	hiddenFlagName             = "hidden"
	maxSizeFlagName            = "max-size"
	zipFlagName                = "zip"
	archiveFormatFlagName      = "archive-format"
	copyFlagName               = "copy"
	tokensFlagName             = "tokens"
	modelFlagName              = "model"
	progressEveryFlagName      = "progress-every"
	depthFlagName              = "depth"
	listFlagName               = "list"
	listFormatFlagName         = "list-format"
	outputFlagDescription      = "output file path"
	includeExtensionsFlagDesc  = "extensions to include (default: every registered type)"
	excludeExtensionsFlagDesc  = "extensions to exclude"
	presetFlagDescription      = "include the extensions of a type category"
	allExtensionsFlagDesc      = "accept any extension"
	excludeDirectoryFlagDesc   = "exclude a root-relative directory and its subtree"
	excludeNameFlagDescription = "exclude directories with this name at any depth (replaces the defaults)"
	lineNumbersFlagDescription = "prefix exported lines with their number"
	ignoreFileFlagDescription  = "apply the root " + utils.IgnoreFileName + " patterns"
	hiddenFlagDescription      = "include hidden files and directories"
	maxSizeFlagDescription     = "largest accepted file, e.g. 5MB or 512KB"
	zipFlagDescription         = "also write an archive of the accepted files"
	archiveFormatFlagDesc      = "archive format (zip or tar.gz)"
	copyFlagDescription        = "copy the export to the clipboard"
	tokensFlagDescription      = "count tokens of exported content"
	modelFlagDescription       = "tokenizer model used for token counting"
	progressEveryFlagDesc      = "accepted files between progress updates (0 disables)"
	depthFlagDescription       = "deepest directory level to enter (-1 for unbounded)"
	listFlagDescription        = "print the accepted files instead of the export path"
	listFormatFlagDescription  = "listing format (raw, json or xml)"

	exportFailedFormat      = "export failed: %w"
	archiveFailedFormat     = "archive failed: %w"
	tokenizerFailedFormat   = "initialize tokenizer: %w"
	archiveWrittenFormat    = "Archive written: %s (%d entries)\n"
	clipboardCopiedMessage  = "export copied to clipboard"
	archiveExtensionPrefix  = "."
	tarGzipFormatAlias      = "tgz"
	workingDirectoryDefault = "."
)

// exportFlags are the raw flag values shared by the export and archive commands.
type exportFlags struct {
	outputPath         string
	includeExtensions  []string
	excludeExtensions  []string
	presets            []string
	allExtensions      bool
	excludeDirectories []string
	excludeNames       []string
	lineNumbers        bool
	useIgnoreFile      bool
	includeHidden      bool
	maxFileSizeBytes   int64
	archive            bool
	archiveFormat      string
	copyToClipboard    bool
	tokens             bool
	model              string
	progressEvery      int
	depth              int
	list               bool
	listFormat         string
}

// exportPlan is the fully resolved work of one export or archive invocation.
type exportPlan struct {
	configuration   types.Configuration
	exportPath      string
	archivePath     string
	archiveFormat   string
	copyToClipboard bool
	tokens          bool
	model           string
	list            bool
	listFormat      string
}

func registerSelectionFlags(command *cobra.Command, flags *exportFlags) {
	flagSet := command.Flags()
	flagSet.StringVarP(&flags.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	flagSet.StringSliceVar(&flags.includeExtensions, includeExtensionsFlagName, nil, includeExtensionsFlagDesc)
	flagSet.StringSliceVar(&flags.excludeExtensions, excludeExtensionsFlagName, nil, excludeExtensionsFlagDesc)
	flagSet.StringSliceVar(&flags.presets, presetFlagName, nil, presetFlagDescription)
	registerBooleanFlag(flagSet, &flags.allExtensions, allExtensionsFlagName, false, allExtensionsFlagDesc)
	flagSet.StringArrayVarP(&flags.excludeDirectories, excludeDirectoryFlagName, excludeDirectoryShorthand, nil, excludeDirectoryFlagDesc)
	flagSet.StringArrayVar(&flags.excludeNames, excludeNameFlagName, nil, excludeNameFlagDescription)
	registerBooleanFlag(flagSet, &flags.useIgnoreFile, ignoreFileFlagName, true, ignoreFileFlagDescription)
	registerBooleanFlag(flagSet, &flags.includeHidden, hiddenFlagName, false, hiddenFlagDescription)
	registerByteSizeFlag(flagSet, &flags.maxFileSizeBytes, maxSizeFlagName, maxSizeFlagDescription)
	flagSet.StringVar(&flags.archiveFormat, archiveFormatFlagName, config.DefaultArchiveFormat, archiveFormatFlagDesc)
	flagSet.IntVar(&flags.depth, depthFlagName, unboundedDepthFlagDefault, depthFlagDescription)
}

// createExportCommand returns the export subcommand.
func createExportCommand(app *application) *cobra.Command {
	var flags exportFlags

	exportCommand := &cobra.Command{
		Use:     exportUse,
		Aliases: []string{exportAlias},
		Short:   exportShortDescription,
		Long:    exportLongDescription,
		Example: exportUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			plan, planError := app.resolveExportPlan(command, flags, rootArgument(arguments), true)
			if planError != nil {
				return planError
			}
			return app.runExport(command, plan)
		},
	}

	registerSelectionFlags(exportCommand, &flags)
	flagSet := exportCommand.Flags()
	registerBooleanFlag(flagSet, &flags.lineNumbers, lineNumbersFlagName, false, lineNumbersFlagDescription)
	registerBooleanFlag(flagSet, &flags.archive, zipFlagName, false, zipFlagDescription)
	registerBooleanFlag(flagSet, &flags.copyToClipboard, copyFlagName, false, copyFlagDescription)
	registerBooleanFlag(flagSet, &flags.tokens, tokensFlagName, false, tokensFlagDescription)
	flagSet.StringVar(&flags.model, modelFlagName, config.DefaultTokenModel, modelFlagDescription)
	flagSet.IntVar(&flags.progressEvery, progressEveryFlagName, config.DefaultProgressInterval, progressEveryFlagDesc)
	registerBooleanFlag(flagSet, &flags.list, listFlagName, false, listFlagDescription)
	flagSet.StringVar(&flags.listFormat, listFormatFlagName, output.FormatRaw, listFormatFlagDescription)
	return exportCommand
}

// createArchiveCommand returns the archive subcommand.
func createArchiveCommand(app *application) *cobra.Command {
	var flags exportFlags

	archiveCommand := &cobra.Command{
		Use:     archiveUse,
		Aliases: []string{archiveAlias},
		Short:   archiveShortDescription,
		Long:    archiveLongDescription,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			plan, planError := app.resolveExportPlan(command, flags, rootArgument(arguments), false)
			if planError != nil {
				return planError
			}
			return app.runArchive(command, plan)
		},
	}
	registerSelectionFlags(archiveCommand, &flags)
	return archiveCommand
}

// resolveExportPlan merges flags over the configuration file. Flags the user
// did not set fall back to the configuration, then to the built-in defaults.
func (app *application) resolveExportPlan(command *cobra.Command, flags exportFlags, root string, withExport bool) (exportPlan, error) {
	settings := app.configuration.Export
	changed := command.Flags().Changed

	presets := settings.Presets
	if changed(presetFlagName) {
		presets = flags.presets
	}
	includeExtensions := settings.IncludeExtensions
	if changed(includeExtensionsFlagName) {
		includeExtensions = flags.includeExtensions
	}
	allExtensions := config.BoolValue(settings.AllExtensions, false)
	if changed(allExtensionsFlagName) {
		allExtensions = flags.allExtensions
	}
	resolvedIncludes, includeError := app.resolveIncludeExtensions(includeExtensions, presets, allExtensions)
	if includeError != nil {
		return exportPlan{}, includeError
	}

	excludeExtensions := settings.ExcludeExtensions
	if changed(excludeExtensionsFlagName) {
		excludeExtensions = flags.excludeExtensions
	}
	excludeDirectories := append(append([]string{}, settings.ExcludeDirectories...), flags.excludeDirectories...)
	excludeNames := settings.EffectiveExcludeDirectoryNames()
	if changed(excludeNameFlagName) {
		excludeNames = flags.excludeNames
	}

	maxFileSizeBytes, sizeError := settings.MaxFileSizeBytes()
	if sizeError != nil {
		return exportPlan{}, sizeError
	}
	if changed(maxSizeFlagName) {
		maxFileSizeBytes = flags.maxFileSizeBytes
	}

	archiveFormat := settings.ArchiveFormat
	if archiveFormat == "" || changed(archiveFormatFlagName) {
		archiveFormat = flags.archiveFormat
	}
	archiveFormat = normalizeArchiveFormat(archiveFormat)

	plan := exportPlan{
		configuration: types.Configuration{
			Root:                  root,
			IncludeExtensions:     resolvedIncludes,
			ExcludeExtensions:     utils.NormalizeExtensions(excludeExtensions),
			ExcludeDirectories:    utils.DeduplicatePatterns(excludeDirectories),
			ExcludeDirectoryNames: utils.DeduplicatePatterns(excludeNames),
			RespectIgnoreFile:     flagOrSetting(changed(ignoreFileFlagName), flags.useIgnoreFile, settings.UseIgnoreFile, true),
			IncludeHidden:         flagOrSetting(changed(hiddenFlagName), flags.includeHidden, settings.IncludeHidden, false),
			MaxFileSizeBytes:      maxFileSizeBytes,
			IncludeLineNumbers:    flagOrSetting(changed(lineNumbersFlagName), flags.lineNumbers, settings.LineNumbers, false),
			MaxTraversalDepth:     depthPointer(flags.depth),
			ProgressInterval:      config.IntValue(settings.ProgressEvery, config.DefaultProgressInterval),
		},
		archiveFormat:   archiveFormat,
		copyToClipboard: flagOrSetting(changed(copyFlagName), flags.copyToClipboard, settings.Clipboard, false),
		tokens:          flagOrSetting(changed(tokensFlagName), flags.tokens, settings.Tokens.Enabled, false),
		model:           settings.Tokens.Model,
		list:            flags.list,
		listFormat:      flags.listFormat,
	}
	if changed(progressEveryFlagName) {
		plan.configuration.ProgressInterval = flags.progressEvery
	}
	if plan.model == "" || changed(modelFlagName) {
		plan.model = flags.model
	}

	outputDirectory := settings.OutputDirectory
	if outputDirectory == "" {
		outputDirectory = workingDirectoryDefault
	}
	if !withExport {
		plan.archivePath = flags.outputPath
		if plan.archivePath == "" {
			baseName := strings.TrimSuffix(config.DefaultOutputName(app.now()), config.DefaultOutputExtension)
			plan.archivePath = filepath.Join(outputDirectory, baseName+archiveExtensionPrefix+archiveFormat)
		}
		return plan, nil
	}

	plan.exportPath = flags.outputPath
	if plan.exportPath == "" {
		outputName := settings.OutputName
		if outputName == "" {
			outputName = config.DefaultOutputName(app.now())
		}
		plan.exportPath = filepath.Join(outputDirectory, outputName)
	}
	plan.configuration.OutputPath = plan.exportPath
	if flagOrSetting(changed(zipFlagName), flags.archive, settings.Archive, false) {
		plan.archivePath = archivePathFor(plan.exportPath, archiveFormat)
	}
	return plan, nil
}

// resolveIncludeExtensions returns nil when every extension is accepted.
// Without explicit extensions or presets the registry's types are used.
func (app *application) resolveIncludeExtensions(includeExtensions []string, presets []string, allExtensions bool) ([]string, error) {
	if allExtensions {
		return nil, nil
	}
	extensions := append([]string{}, includeExtensions...)
	if len(presets) > 0 {
		presetExtensions, presetError := app.registry.Preset(presets...)
		if presetError != nil {
			return nil, presetError
		}
		extensions = append(extensions, presetExtensions...)
	}
	if len(utils.NormalizeExtensions(extensions)) == 0 {
		return app.registry.Extensions(), nil
	}
	return utils.NormalizeExtensions(extensions), nil
}

func flagOrSetting(flagChanged bool, flagValue bool, setting *bool, fallback bool) bool {
	if flagChanged {
		return flagValue
	}
	return config.BoolValue(setting, fallback)
}

func normalizeArchiveFormat(format string) string {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == tarGzipFormatAlias {
		return types.ArchiveFormatTarGz
	}
	return normalized
}

// archivePathFor places the archive next to the export, sharing its base name.
func archivePathFor(exportPath string, format string) string {
	return strings.TrimSuffix(exportPath, filepath.Ext(exportPath)) + archiveExtensionPrefix + format
}

func (app *application) runExport(command *cobra.Command, plan exportPlan) error {
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	standardOutput := command.OutOrStdout()
	errorOutput := command.ErrOrStderr()

	var tokenCounter tokenizer.Counter
	if plan.tokens {
		counter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{Model: plan.model})
		if counterError != nil {
			return fmt.Errorf(tokenizerFailedFormat, counterError)
		}
		app.logger.Debug("token counting enabled", zap.String("model", resolvedModel))
		tokenCounter = counter
	}

	progress := newProgressReporter(errorOutput, app.isTerminal(errorOutput))
	engine := export.NewEngine(export.Options{
		Logger:       app.logger,
		Registry:     app.registry,
		TokenCounter: tokenCounter,
		Progress:     progress.Update,
		SkipPaths:    nonEmpty(plan.archivePath),
	})

	var group errgroup.Group
	var exportResult export.Result
	var archiveResult archive.Result
	var archiveError error
	group.Go(func() error {
		var runError error
		exportResult, runError = engine.Run(ctx, plan.configuration)
		return runError
	})
	if plan.archivePath != "" {
		group.Go(func() error {
			archiveResult, archiveError = app.buildArchive(ctx, plan, nonEmpty(plan.exportPath))
			return nil
		})
	}
	exportError := group.Wait()
	progress.Finish()
	if exportError != nil {
		return fmt.Errorf(exportFailedFormat, exportError)
	}

	summaryOptions := output.SummaryOptions{
		ExportPath:     exportResult.ExportPath,
		ArchivePath:    archiveResult.ArchivePath,
		ArchiveEntries: archiveResult.EntryCount,
		Colorize:       app.isTerminal(errorOutput),
	}
	if summaryError := output.WriteSummary(errorOutput, exportResult.Statistics, summaryOptions); summaryError != nil {
		return summaryError
	}

	if plan.copyToClipboard {
		if copyError := clipboard.CopyFile(app.copier, exportResult.ExportPath, clipboard.DefaultMaxCopyBytes); copyError != nil {
			app.logger.Warn("clipboard copy failed", zap.Error(copyError))
		} else {
			app.logger.Info(clipboardCopiedMessage)
		}
	}

	if plan.list {
		if renderError := output.RenderRecords(standardOutput, exportResult.Records, plan.listFormat); renderError != nil {
			return renderError
		}
	} else {
		fmt.Fprintln(standardOutput, exportResult.ExportPath)
	}
	if archiveError != nil {
		return fmt.Errorf(archiveFailedFormat, archiveError)
	}
	return nil
}

func (app *application) runArchive(command *cobra.Command, plan exportPlan) error {
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, archiveError := app.buildArchive(ctx, plan, nil)
	if archiveError != nil {
		return fmt.Errorf(archiveFailedFormat, archiveError)
	}
	fmt.Fprintf(command.ErrOrStderr(), archiveWrittenFormat, result.ArchivePath, result.EntryCount)
	fmt.Fprintln(command.OutOrStdout(), result.ArchivePath)
	return nil
}

func (app *application) buildArchive(ctx context.Context, plan exportPlan, skipPaths []string) (archive.Result, error) {
	return archive.NewBuilder(app.logger).Build(ctx, archive.Request{
		Configuration: plan.configuration,
		OutputPath:    plan.archivePath,
		Format:        plan.archiveFormat,
		SkipPaths:     skipPaths,
	})
}

func nonEmpty(paths ...string) []string {
	var result []string
	for _, path := range paths {
		if path != "" {
			result = append(result, path)
		}
	}
	return result
}
