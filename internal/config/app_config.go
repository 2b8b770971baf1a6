// Package config loads codeagg configuration files and root ignore patterns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

// Defaults applied when neither flags nor configuration files set a value.
const (
	DefaultMaxFileSize      = "5MB"
	DefaultOutputNamePrefix = "code_export_"
	DefaultOutputExtension  = ".txt"
	DefaultArchiveFormat    = types.ArchiveFormatZip
	DefaultProgressInterval = 25
	DefaultTokenModel       = "gpt-4o"
	DefaultFolderDepth      = 2
)

// DefaultExcludedDirectoryNames are skipped at any depth unless configured otherwise.
var DefaultExcludedDirectoryNames = []string{".git", "__pycache__", "node_modules", ".venv", "venv", "build", "dist"}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	LogLevel string               `mapstructure:"log_level"`
	Export   ExportConfiguration  `mapstructure:"export"`
	Tree     TreeConfiguration    `mapstructure:"tree"`
	Folders  FoldersConfiguration `mapstructure:"folders"`
}

// ExportConfiguration defines defaults of the export and archive commands.
type ExportConfiguration struct {
	IncludeExtensions     []string           `mapstructure:"include_extensions"`
	ExcludeExtensions     []string           `mapstructure:"exclude_extensions"`
	Presets               []string           `mapstructure:"presets"`
	AllExtensions         *bool              `mapstructure:"all_extensions"`
	ExcludeDirectories    []string           `mapstructure:"exclude_directories"`
	ExcludeDirectoryNames []string           `mapstructure:"exclude_names"`
	LineNumbers           *bool              `mapstructure:"line_numbers"`
	UseIgnoreFile         *bool              `mapstructure:"use_ignore_file"`
	IncludeHidden         *bool              `mapstructure:"include_hidden"`
	MaxFileSize           string             `mapstructure:"max_file_size"`
	OutputDirectory       string             `mapstructure:"output_directory"`
	OutputName            string             `mapstructure:"output_name"`
	Archive               *bool              `mapstructure:"archive"`
	ArchiveFormat         string             `mapstructure:"archive_format"`
	ProgressEvery         *int               `mapstructure:"progress_every"`
	Clipboard             *bool              `mapstructure:"clipboard"`
	Tokens                TokenConfiguration `mapstructure:"tokens"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// TreeConfiguration defines defaults of the tree command.
type TreeConfiguration struct {
	Depth      *int `mapstructure:"depth"`
	MaxEntries *int `mapstructure:"max_entries"`
}

// FoldersConfiguration defines defaults of the folders command.
type FoldersConfiguration struct {
	Depth *int `mapstructure:"depth"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Export.ExcludeDirectories = utils.DeduplicatePatterns(merged.Export.ExcludeDirectories)
	if merged.Export.ExcludeDirectoryNames != nil {
		// nil keeps DefaultExcludedDirectoryNames in effect
		merged.Export.ExcludeDirectoryNames = utils.DeduplicatePatterns(merged.Export.ExcludeDirectoryNames)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	result.Export = result.Export.merge(override.Export)
	result.Tree = result.Tree.merge(override.Tree)
	result.Folders = result.Folders.merge(override.Folders)
	return result
}

func (config ExportConfiguration) merge(override ExportConfiguration) ExportConfiguration {
	result := config
	result.IncludeExtensions = overrideList(result.IncludeExtensions, override.IncludeExtensions)
	result.ExcludeExtensions = overrideList(result.ExcludeExtensions, override.ExcludeExtensions)
	result.Presets = overrideList(result.Presets, override.Presets)
	result.ExcludeDirectories = overrideList(result.ExcludeDirectories, override.ExcludeDirectories)
	result.ExcludeDirectoryNames = overrideList(result.ExcludeDirectoryNames, override.ExcludeDirectoryNames)
	if override.AllExtensions != nil {
		result.AllExtensions = cloneBool(override.AllExtensions)
	}
	if override.LineNumbers != nil {
		result.LineNumbers = cloneBool(override.LineNumbers)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.IncludeHidden != nil {
		result.IncludeHidden = cloneBool(override.IncludeHidden)
	}
	if override.MaxFileSize != "" {
		result.MaxFileSize = override.MaxFileSize
	}
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.OutputName != "" {
		result.OutputName = override.OutputName
	}
	if override.Archive != nil {
		result.Archive = cloneBool(override.Archive)
	}
	if override.ArchiveFormat != "" {
		result.ArchiveFormat = override.ArchiveFormat
	}
	if override.ProgressEvery != nil {
		result.ProgressEvery = cloneInt(override.ProgressEvery)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.MaxEntries != nil {
		result.MaxEntries = cloneInt(override.MaxEntries)
	}
	return result
}

func (config FoldersConfiguration) merge(override FoldersConfiguration) FoldersConfiguration {
	result := config
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	return result
}

// EffectiveExcludeDirectoryNames returns the configured names or the defaults
// when none are configured.
func (config ExportConfiguration) EffectiveExcludeDirectoryNames() []string {
	if config.ExcludeDirectoryNames != nil {
		return append([]string{}, config.ExcludeDirectoryNames...)
	}
	return append([]string{}, DefaultExcludedDirectoryNames...)
}

// MaxFileSizeBytes parses the configured size limit, falling back to DefaultMaxFileSize.
func (config ExportConfiguration) MaxFileSizeBytes() (int64, error) {
	sizeText := config.MaxFileSize
	if sizeText == "" {
		sizeText = DefaultMaxFileSize
	}
	sizeBytes, parseError := utils.ParseByteSize(sizeText)
	if parseError != nil {
		return 0, fmt.Errorf("parse export.max_file_size: %w", parseError)
	}
	return sizeBytes, nil
}

// DefaultOutputName returns the timestamped export file name for now.
func DefaultOutputName(now time.Time) string {
	return DefaultOutputNamePrefix + utils.FormatFileNameStamp(now) + DefaultOutputExtension
}

func overrideList(current []string, override []string) []string {
	if override == nil {
		return current
	}
	return append([]string{}, utils.DeduplicatePatterns(override)...)
}

// BoolValue dereferences value or returns fallback when it is nil.
func BoolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// IntValue dereferences value or returns fallback when it is nil.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
