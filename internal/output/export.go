// Package output renders the export artifact, run summaries and listings.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	exportTitle              = "Code Aggregator Export"
	generatedLabelFormat     = "Generated: %s\n"
	sourceDirectoryFormat    = "Source Directory: %s\n"
	excludedFoldersFormat    = "Excluded Folders: %s\n"
	excludedFoldersSeparator = ", "

	fileLineFormat     = "// FILE: %s\n"
	relativeLineFormat = "// RELATIVE: %s\n"
	typeLineFormat     = "// TYPE: %s | SIZE: %d bytes | LINES: %d\n"
	errorLineFormat    = "// ERROR: %s: %s\n"
	numberedLineFormat = "%4d | %s"

	separatorWidth = 100
)

// SeparatorLine delimits the header and every block of the export.
var SeparatorLine = strings.Repeat("=", separatorWidth)

// ExportHeader is the run header written once at the top of an export.
type ExportHeader struct {
	Generated           time.Time
	Root                string
	ExcludedDirectories []string
}

// WriteRunHeader writes the export title block.
func WriteRunHeader(writer io.Writer, header ExportHeader) error {
	var builder strings.Builder
	builder.WriteString(exportTitle + "\n")
	builder.WriteString(SeparatorLine + "\n")
	fmt.Fprintf(&builder, generatedLabelFormat, utils.FormatTimestamp(header.Generated))
	fmt.Fprintf(&builder, sourceDirectoryFormat, header.Root)
	if len(header.ExcludedDirectories) > 0 {
		fmt.Fprintf(&builder, excludedFoldersFormat, strings.Join(header.ExcludedDirectories, excludedFoldersSeparator))
	}
	builder.WriteString(SeparatorLine + "\n\n")
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

// WriteFileBlock writes the metadata lines and content of one accepted file.
func WriteFileBlock(writer io.Writer, record types.FileRecord, content string, lineNumbers bool) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, fileLineFormat, record.AbsolutePath)
	fmt.Fprintf(&builder, relativeLineFormat, record.RelativePath)
	fmt.Fprintf(&builder, typeLineFormat, record.TypeLabel, record.SizeBytes, record.LineCount)
	builder.WriteString(SeparatorLine + "\n\n")
	if lineNumbers && content != "" {
		builder.WriteString(NumberLines(content))
	} else {
		builder.WriteString(content)
	}
	builder.WriteString("\n\n" + SeparatorLine + "\n\n")
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

// WriteErrorBlock writes the placeholder emitted in place of unreadable content.
func WriteErrorBlock(writer io.Writer, relativePath string, cause error) error {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	_, writeError := fmt.Fprintf(writer, errorLineFormat+"%s\n\n", relativePath, message, SeparatorLine)
	return writeError
}

// NumberLines prefixes every line of content with a four-wide line number.
func NumberLines(content string) string {
	lines := strings.Split(content, "\n")
	numbered := make([]string, len(lines))
	for index, line := range lines {
		numbered[index] = fmt.Sprintf(numberedLineFormat, index+1, line)
	}
	return strings.Join(numbered, "\n")
}

// CountLines returns the number of line breaks plus one, or zero for empty content.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
