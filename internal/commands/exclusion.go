package commands

import (
	"sort"
	"strings"

	"github.com/temirov/codeagg/internal/utils"
)

const pathSeparator = "/"

// ExclusionMatcher decides whether a root-relative, slash-separated path is
// excluded by directory rules or by ignore-file patterns.
//
// Directory rules compare whole path segments, so "src" excludes "src" and
// "src/main.go" but never "src2". Ignore patterns are a loose approximation of
// ignore-file semantics: a pattern matches when it appears anywhere in the
// path. A pattern ending in "/" matches when the pattern without the slash
// appears in the path. Globs and negation are not supported.
type ExclusionMatcher struct {
	directoryPrefixes []string
	directoryNames    map[string]struct{}
	ignorePatterns    []string
}

// NewExclusionMatcher builds a matcher. directoryPrefixes are root-relative
// directory paths, directoryNames match a single segment at any depth and
// ignorePatterns come from the root ignore file.
func NewExclusionMatcher(directoryPrefixes []string, directoryNames []string, ignorePatterns []string) *ExclusionMatcher {
	matcher := &ExclusionMatcher{directoryNames: make(map[string]struct{})}
	for _, prefix := range directoryPrefixes {
		if normalized := utils.NormalizeRelativePath(prefix); normalized != "" && normalized != "." {
			matcher.directoryPrefixes = append(matcher.directoryPrefixes, normalized)
		}
	}
	matcher.directoryPrefixes = utils.DeduplicatePatterns(matcher.directoryPrefixes)
	for _, name := range directoryNames {
		if trimmed := strings.Trim(strings.TrimSpace(name), pathSeparator); trimmed != "" {
			matcher.directoryNames[trimmed] = struct{}{}
		}
	}
	for _, pattern := range ignorePatterns {
		if strings.TrimSpace(pattern) != "" {
			matcher.ignorePatterns = append(matcher.ignorePatterns, pattern)
		}
	}
	return matcher
}

// IsExcluded reports whether relativePath is excluded by any rule.
func (matcher *ExclusionMatcher) IsExcluded(relativePath string) bool {
	return matcher.IsDirectoryExcluded(relativePath) || matcher.IsIgnored(relativePath)
}

// IsDirectoryExcluded reports whether relativePath equals an excluded
// directory, lies beneath one, or passes through a directory with an
// excluded name. The final segment is treated as a directory name.
func (matcher *ExclusionMatcher) IsDirectoryExcluded(relativePath string) bool {
	if matcher == nil {
		return false
	}
	normalizedPath := utils.NormalizeRelativePath(relativePath)
	if normalizedPath == "" {
		return false
	}
	for _, prefix := range matcher.directoryPrefixes {
		if normalizedPath == prefix || strings.HasPrefix(normalizedPath, prefix+pathSeparator) {
			return true
		}
	}
	if len(matcher.directoryNames) == 0 {
		return false
	}
	for _, segment := range strings.Split(normalizedPath, pathSeparator) {
		if _, excluded := matcher.directoryNames[segment]; excluded {
			return true
		}
	}
	return false
}

// IsIgnored reports whether relativePath matches an ignore pattern.
func (matcher *ExclusionMatcher) IsIgnored(relativePath string) bool {
	if matcher == nil || len(matcher.ignorePatterns) == 0 {
		return false
	}
	normalizedPath := utils.NormalizeRelativePath(relativePath)
	for _, pattern := range matcher.ignorePatterns {
		if strings.Contains(normalizedPath, pattern) {
			return true
		}
		if strings.HasSuffix(pattern, pathSeparator) {
			trimmedPattern := strings.TrimSuffix(pattern, pathSeparator)
			if trimmedPattern != "" && strings.Contains(normalizedPath, trimmedPattern) {
				return true
			}
		}
	}
	return false
}

// ExcludedDirectories lists the configured prefixes followed by the
// configured names in sorted order.
func (matcher *ExclusionMatcher) ExcludedDirectories() []string {
	excluded := append([]string(nil), matcher.directoryPrefixes...)
	names := make([]string, 0, len(matcher.directoryNames))
	for name := range matcher.directoryNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return utils.DeduplicatePatterns(append(excluded, names...))
}
