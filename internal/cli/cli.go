// Package cli provides the codeagg command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/codeagg/internal/config"
	"github.com/temirov/codeagg/internal/registry"
	"github.com/temirov/codeagg/internal/services/clipboard"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	rootUse              = "codeagg"
	rootShortDescription = "aggregate a source tree into one reviewable document"
	rootLongDescription  = `codeagg walks a directory tree and writes every accepted source file into a
single text export annotated with per-file metadata. It can also package the
same file set into an archive, preview the tree, and list folders to exclude.

Settings are read from ~/.codeagg/config.yaml and ./config.yaml (or --config);
flags override both.`

	versionFlagName        = "version"
	versionFlagDescription = "display application version"
	versionTemplate        = "codeagg version: %s\n"
	configFlagName         = "config"
	configFlagDescription  = "path to a configuration file"
	logLevelFlagName       = "log-level"
	logLevelFlagDesc       = "log level (debug, info, warn, error)"

	defaultPath = "."

	loadConfigurationErrorFormat = "load configuration: %w"
)

// folderPicker lets the user choose among candidate folders.
type folderPicker func(candidates []string) ([]string, error)

// application carries the collaborators shared by every command. Tests
// replace the fields that touch the terminal or the system clipboard.
type application struct {
	configuration config.ApplicationConfiguration
	logger        *zap.Logger
	registry      *registry.Registry
	copier        clipboard.Copier
	pickFolders   folderPicker
	now           func() time.Time
	isTerminal    func(writer io.Writer) bool
	newLogger     func(levelName string) (*zap.Logger, error)
}

func newApplication() *application {
	return &application{
		logger:      zap.NewNop(),
		registry:    registry.Default(),
		copier:      clipboard.NewService(),
		pickFolders: pickFoldersInteractively,
		now:         time.Now,
		isTerminal:  writerIsTerminal,
		newLogger:   utils.NewApplicationLogger,
	}
}

func writerIsTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Execute runs the codeagg application until ctx is cancelled.
func Execute(ctx context.Context) error {
	rootCommand := createRootCommand(newApplication())
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(app *application) *cobra.Command {
	var showVersion bool
	var configurationPath string
	var logLevel string

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			loadedConfiguration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: configurationPath})
			if loadError != nil {
				return fmt.Errorf(loadConfigurationErrorFormat, loadError)
			}
			app.configuration = loadedConfiguration
			if !command.Flags().Changed(logLevelFlagName) {
				logLevel = loadedConfiguration.LogLevel
			}
			logger, loggerError := app.newLogger(logLevel)
			if loggerError != nil {
				return loggerError
			}
			app.logger = logger
			return nil
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&configurationPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().StringVar(&logLevel, logLevelFlagName, utils.DefaultLogLevel, logLevelFlagDesc)
	rootCommand.AddCommand(
		createExportCommand(app),
		createArchiveCommand(app),
		createTreeCommand(app),
		createFoldersCommand(app),
		createTypesCommand(app),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// rootArgument returns the optional positional root, defaulting to the
// working directory.
func rootArgument(arguments []string) string {
	if len(arguments) == 0 {
		return defaultPath
	}
	return arguments[0]
}
