// Package utils contains general helper functions used across codeagg.
package utils

import (
	"path/filepath"
	"strings"
)

// Ignore and configuration file constants used across the project.
const (
	// IgnoreFileName is the name of the root-level ignore file consulted when enabled.
	IgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// HiddenMarker is the leading character of hidden entry names.
	HiddenMarker = "."
)

const pathSegmentSeparator = "/"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// RelativePathOrSelf calculates the slash-separated relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// JoinRelative appends name to a slash-separated relative directory path.
func JoinRelative(relativeDirectory, name string) string {
	if relativeDirectory == "" || relativeDirectory == "." {
		return name
	}
	return relativeDirectory + pathSegmentSeparator + name
}

// NormalizeRelativePath converts a user supplied relative path to slash form
// without leading "./" or surrounding separators.
func NormalizeRelativePath(relativePath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(relativePath), "\\", pathSegmentSeparator)
	for strings.HasPrefix(normalized, "./") {
		normalized = strings.TrimPrefix(normalized, "./")
	}
	return strings.Trim(normalized, pathSegmentSeparator)
}

// IsHidden reports whether an entry name starts with the hidden marker.
func IsHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, HiddenMarker)
}

// NormalizeExtension lower-cases an extension and ensures a leading dot.
// An empty input stays empty.
func NormalizeExtension(extension string) string {
	cleaned := strings.ToLower(strings.TrimSpace(extension))
	if cleaned == "" {
		return ""
	}
	if !strings.HasPrefix(cleaned, ".") {
		cleaned = "." + cleaned
	}
	return cleaned
}

// NormalizeExtensions splits comma separated entries and normalizes every extension.
func NormalizeExtensions(extensions []string) []string {
	var normalized []string
	for _, entry := range extensions {
		for _, part := range strings.Split(entry, ",") {
			if extension := NormalizeExtension(part); extension != "" {
				normalized = append(normalized, extension)
			}
		}
	}
	return DeduplicatePatterns(normalized)
}

// FileExtension returns the lower-cased extension of name including the dot.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
