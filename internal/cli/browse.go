package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/temirov/codeagg/internal/commands"
	"github.com/temirov/codeagg/internal/config"
	"github.com/temirov/codeagg/internal/output"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	treeUse              = "tree [root]"
	treeAlias            = "t"
	treeShortDescription = "preview the directory tree (" + treeAlias + ")"
	treeLongDescription  = `Render a bounded preview of root. Files with a registered type are marked
with +, other files with -. Excluded and hidden directories are left out.`

	foldersUse              = "folders [root]"
	foldersAlias            = "f"
	foldersShortDescription = "list folders under root (" + foldersAlias + ")"
	foldersLongDescription  = `List the non-hidden folders under root, for example to choose which ones to
exclude. --pick opens an interactive selector and prints the chosen folders as
--exclude-dir flags.`
	foldersUsageExample = `  # Pick folders interactively and export without them
  codeagg export $(codeagg folders --pick)`

	typesUse              = "types"
	typesShortDescription = "list the registered file types"

	initUse              = "init"
	initShortDescription = "write the default configuration file"

	maxEntriesFlagName        = "max-entries"
	maxEntriesFlagDescription = "files listed per directory before truncating"
	treeDepthFlagDescription  = "deepest directory level shown"
	folderDepthFlagDesc       = "deepest folder level listed (1 lists top-level folders)"
	pickFlagName              = "pick"
	pickFlagDescription       = "choose folders interactively"
	formatFlagName            = "format"
	formatFlagDescription     = "output format (raw, json or xml)"
	globalFlagName            = "global"
	globalFlagDescription     = "write ~/" + utils.GlobalConfigDirectoryName + "/" + utils.ConfigFileName + " instead of ./" + utils.ConfigFileName
	forceFlagName             = "force"
	forceFlagDescription      = "overwrite an existing configuration file"

	typeLineFormat          = "%-14s %-22s %s\n"
	excludeFlagOutputFormat = "-%s %s"
	configurationWritten    = "Configuration written to %s\n"
	noFoldersToPickMessage  = "no folders to pick from"
	pickFailedFormat        = "folder selection failed: %w"
)

// createTreeCommand returns the tree subcommand.
func createTreeCommand(app *application) *cobra.Command {
	var depth int
	var maxEntries int
	var excludeDirectories []string
	var includeHidden bool

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			settings := app.configuration.Tree
			if !command.Flags().Changed(depthFlagName) {
				depth = config.IntValue(settings.Depth, commands.DefaultTreeDepth)
			}
			if !command.Flags().Changed(maxEntriesFlagName) {
				maxEntries = config.IntValue(settings.MaxEntries, commands.DefaultTreeEntriesPerDirectory)
			}
			rendered, renderError := commands.RenderTree(command.Context(), commands.TreeOptions{
				Root:                   rootArgument(arguments),
				Matcher:                app.directoryMatcher(excludeDirectories),
				MaxDepth:               depth,
				MaxEntriesPerDirectory: maxEntries,
				IncludeHidden:          includeHidden,
				Registry:               app.registry,
				Warn:                   app.warn,
			})
			if renderError != nil {
				return renderError
			}
			fmt.Fprintln(command.OutOrStdout(), rendered)
			return nil
		},
	}
	flagSet := treeCommand.Flags()
	flagSet.IntVar(&depth, depthFlagName, commands.DefaultTreeDepth, treeDepthFlagDescription)
	flagSet.IntVar(&maxEntries, maxEntriesFlagName, commands.DefaultTreeEntriesPerDirectory, maxEntriesFlagDescription)
	flagSet.StringArrayVarP(&excludeDirectories, excludeDirectoryFlagName, excludeDirectoryShorthand, nil, excludeDirectoryFlagDesc)
	registerBooleanFlag(flagSet, &includeHidden, hiddenFlagName, false, hiddenFlagDescription)
	return treeCommand
}

// createFoldersCommand returns the folders subcommand.
func createFoldersCommand(app *application) *cobra.Command {
	var depth int
	var excludeDirectories []string
	var pick bool
	var format string

	foldersCommand := &cobra.Command{
		Use:     foldersUse,
		Aliases: []string{foldersAlias},
		Short:   foldersShortDescription,
		Long:    foldersLongDescription,
		Example: foldersUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if !command.Flags().Changed(depthFlagName) {
				depth = config.IntValue(app.configuration.Folders.Depth, config.DefaultFolderDepth)
			}
			folders, enumerateError := commands.EnumerateFolders(command.Context(), commands.FolderOptions{
				Root:     rootArgument(arguments),
				MaxDepth: depth,
				Matcher:  app.directoryMatcher(excludeDirectories),
				Warn:     app.warn,
			})
			if enumerateError != nil {
				return enumerateError
			}
			if !pick {
				return output.RenderFolders(command.OutOrStdout(), folders, format)
			}

			candidates := make([]string, 0, len(folders))
			for _, folder := range folders {
				candidates = append(candidates, folder.RelativePath)
			}
			if len(candidates) == 0 {
				return errors.New(noFoldersToPickMessage)
			}
			selected, pickError := app.pickFolders(candidates)
			if pickError != nil {
				return fmt.Errorf(pickFailedFormat, pickError)
			}
			if len(selected) == 0 {
				return nil
			}
			excludeFlags := make([]string, 0, len(selected))
			for _, relativePath := range selected {
				excludeFlags = append(excludeFlags, fmt.Sprintf(excludeFlagOutputFormat, excludeDirectoryShorthand, relativePath))
			}
			fmt.Fprintln(command.OutOrStdout(), strings.Join(excludeFlags, " "))
			return nil
		},
	}
	flagSet := foldersCommand.Flags()
	flagSet.IntVar(&depth, depthFlagName, config.DefaultFolderDepth, folderDepthFlagDesc)
	flagSet.StringArrayVarP(&excludeDirectories, excludeDirectoryFlagName, excludeDirectoryShorthand, nil, excludeDirectoryFlagDesc)
	registerBooleanFlag(flagSet, &pick, pickFlagName, false, pickFlagDescription)
	flagSet.StringVar(&format, formatFlagName, output.FormatRaw, formatFlagDescription)
	return foldersCommand
}

// pickFoldersInteractively runs a fuzzy multi-select over candidates. An
// aborted selection yields no folders and no error.
func pickFoldersInteractively(candidates []string) ([]string, error) {
	indexes, findError := fuzzyfinder.FindMulti(
		candidates,
		func(index int) string {
			return candidates[index]
		},
		fuzzyfinder.WithHeader("Tab selects folders to exclude, Enter confirms"),
	)
	if errors.Is(findError, fuzzyfinder.ErrAbort) {
		return nil, nil
	}
	if findError != nil {
		return nil, findError
	}
	selected := make([]string, 0, len(indexes))
	for _, index := range indexes {
		selected = append(selected, candidates[index])
	}
	return selected, nil
}

// createTypesCommand returns the types subcommand.
func createTypesCommand(app *application) *cobra.Command {
	var presets []string

	typesCommand := &cobra.Command{
		Use:   typesUse,
		Short: typesShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			var allowed map[string]struct{}
			if len(presets) > 0 {
				presetExtensions, presetError := app.registry.Preset(presets...)
				if presetError != nil {
					return presetError
				}
				allowed = make(map[string]struct{}, len(presetExtensions))
				for _, extension := range presetExtensions {
					allowed[extension] = struct{}{}
				}
			}
			for _, entry := range app.registry.Entries() {
				if allowed != nil {
					if _, keep := allowed[entry.Extension]; !keep {
						continue
					}
				}
				fmt.Fprintf(command.OutOrStdout(), typeLineFormat, entry.Extension, entry.Label, entry.Category)
			}
			return nil
		},
	}
	typesCommand.Flags().StringSliceVar(&presets, presetFlagName, nil, presetFlagDescription)
	return typesCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destination, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.ErrOrStderr(), configurationWritten, destination)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// directoryMatcher combines the configured exclusions with extra prefixes
// given on the command line.
func (app *application) directoryMatcher(extraDirectories []string) *commands.ExclusionMatcher {
	settings := app.configuration.Export
	prefixes := utils.DeduplicatePatterns(append(append([]string{}, settings.ExcludeDirectories...), extraDirectories...))
	return commands.NewExclusionMatcher(prefixes, settings.EffectiveExcludeDirectoryNames(), nil)
}

func (app *application) warn(message string) {
	app.logger.Warn(message)
}
