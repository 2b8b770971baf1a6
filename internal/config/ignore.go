package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/codeagg/internal/utils"
)

const (
	commentMarker  = "#"
	negationMarker = "!"
	anchorMarker   = "/"
)

// LoadIgnorePatterns reads the ignore file at the root of rootDirectory.
// Blank lines, comments and negated patterns are dropped and leading anchors
// are trimmed. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnorePatterns(rootDirectory string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ignoreFilePath := filepath.Join(rootDirectory, utils.IgnoreFileName)
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file %s: %w", ignoreFilePath, openFileError)
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil {
			logger.Warn("failed to close ignore file", zap.String("path", ignoreFilePath), zap.Error(closeError))
		}
	}()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentMarker) {
			continue
		}
		if strings.HasPrefix(trimmedLine, negationMarker) {
			logger.Debug("negated ignore pattern dropped", zap.String("pattern", trimmedLine))
			continue
		}
		pattern := strings.TrimLeft(trimmedLine, anchorMarker)
		if pattern == "" {
			continue
		}
		ignorePatterns = append(ignorePatterns, pattern)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", ignoreFilePath, scanError)
	}
	return utils.DeduplicatePatterns(ignorePatterns), nil
}
