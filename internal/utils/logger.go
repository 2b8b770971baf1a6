package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "info"

// NewApplicationLogger constructs a zap logger configured for human-readable console output
// on stderr at the requested level.
func NewApplicationLogger(levelName string) (*zap.Logger, error) {
	if strings.TrimSpace(levelName) == "" {
		levelName = DefaultLogLevel
	}
	level, levelError := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelName)))
	if levelError != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, levelError)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}
