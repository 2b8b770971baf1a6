package commands

import (
	"fmt"
	"os"

	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

// Reasons attached to non-accepted classifications.
const (
	ReasonHidden            = "hidden"
	ReasonIgnorePattern     = "ignore pattern"
	ReasonOversized         = "exceeds size limit"
	ReasonBinary            = "binary content"
	ReasonExcludedExtension = "excluded extension"
	ReasonNotIncluded       = "extension not included"
	ReasonStatFailed        = "stat failed"

	errorStatFileFormat = "stat %s: %w"
)

// Classification is the verdict for one candidate file.
type Classification struct {
	Outcome   types.FileOutcome
	Reason    string
	Extension string
	SizeBytes int64
	Err       error
}

// FileFilter is the inclusion predicate shared by the export and the archive.
// Checks run in a fixed order: hidden, ignore pattern, size, binary content,
// extension. The first failing check decides the outcome.
type FileFilter struct {
	matcher           *ExclusionMatcher
	includeHidden     bool
	maxFileSizeBytes  int64
	includeExtensions map[string]struct{}
	excludeExtensions map[string]struct{}
}

// NewFileFilter builds the predicate for configuration. A non-positive
// MaxFileSizeBytes disables the size check.
func NewFileFilter(configuration types.Configuration, matcher *ExclusionMatcher) *FileFilter {
	return &FileFilter{
		matcher:           matcher,
		includeHidden:     configuration.IncludeHidden,
		maxFileSizeBytes:  configuration.MaxFileSizeBytes,
		includeExtensions: extensionSet(configuration.IncludeExtensions),
		excludeExtensions: extensionSet(configuration.ExcludeExtensions),
	}
}

func extensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, extension := range utils.NormalizeExtensions(extensions) {
		set[extension] = struct{}{}
	}
	return set
}

// Classify decides the outcome of the file described by event.
func (filter *FileFilter) Classify(event WalkEvent) Classification {
	extension := utils.FileExtension(event.Name)
	if !filter.includeHidden && utils.IsHidden(event.Name) {
		return Classification{Outcome: types.OutcomeIgnored, Reason: ReasonHidden, Extension: extension}
	}
	if filter.matcher.IsIgnored(event.RelativePath) {
		return Classification{Outcome: types.OutcomeIgnored, Reason: ReasonIgnorePattern, Extension: extension}
	}

	fileInfo, statError := os.Stat(event.AbsolutePath)
	if statError != nil {
		return Classification{
			Outcome:   types.OutcomeError,
			Reason:    ReasonStatFailed,
			Extension: extension,
			Err:       fmt.Errorf(errorStatFileFormat, event.RelativePath, statError),
		}
	}
	sizeBytes := fileInfo.Size()
	if filter.maxFileSizeBytes > 0 && sizeBytes > filter.maxFileSizeBytes {
		return Classification{Outcome: types.OutcomeOversized, Reason: ReasonOversized, Extension: extension, SizeBytes: sizeBytes}
	}

	if utils.IsFileBinary(event.AbsolutePath) {
		return Classification{Outcome: types.OutcomeBinary, Reason: ReasonBinary, Extension: extension, SizeBytes: sizeBytes}
	}

	if _, excluded := filter.excludeExtensions[extension]; excluded {
		return Classification{Outcome: types.OutcomeIgnored, Reason: ReasonExcludedExtension, Extension: extension, SizeBytes: sizeBytes}
	}
	if len(filter.includeExtensions) > 0 {
		if _, included := filter.includeExtensions[extension]; !included {
			return Classification{Outcome: types.OutcomeIgnored, Reason: ReasonNotIncluded, Extension: extension, SizeBytes: sizeBytes}
		}
	}
	return Classification{Outcome: types.OutcomeAccepted, Extension: extension, SizeBytes: sizeBytes}
}
