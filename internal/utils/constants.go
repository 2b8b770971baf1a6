package utils

const (
	// EmptyString represents a reusable empty string constant.
	EmptyString = ""

	// ErrorLogFormat defines the formatting string for error log messages.
	ErrorLogFormat = "Error: %v"

	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

	// ApplicationExecutionFailedMessage prefixes fatal command failures.
	ApplicationExecutionFailedMessage = "codeagg failed"

	// ConfigFileName is the name of the local and global configuration file.
	ConfigFileName = "config.yaml"

	// GlobalConfigDirectoryName is the directory under the home directory holding global configuration.
	GlobalConfigDirectoryName = ".codeagg"
)
