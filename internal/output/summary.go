package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	summaryTitle            = "Export complete"
	distributionTitle       = "File Type Distribution"
	distributionLimit       = 10
	summaryLineFormat       = "  %-16s %s\n"
	distributionEntryFormat = "  %-20s %d\n"
	durationRounding        = 10 * time.Millisecond
)

// SummaryOptions describe the artifacts of a finished run.
type SummaryOptions struct {
	ExportPath     string
	ArchivePath    string
	ArchiveEntries int
	Colorize       bool
}

// TypeCount is one entry of the type distribution.
type TypeCount struct {
	Label string
	Count int
}

// TopTypes returns the most frequent type labels, largest first, ties by label.
func TopTypes(filesByType map[string]int, limit int) []TypeCount {
	counts := make([]TypeCount, 0, len(filesByType))
	for label, count := range filesByType {
		counts = append(counts, TypeCount{Label: label, Count: count})
	}
	sort.Slice(counts, func(left, right int) bool {
		if counts[left].Count != counts[right].Count {
			return counts[left].Count > counts[right].Count
		}
		return counts[left].Label < counts[right].Label
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// WriteSummary prints run statistics for a human reader.
func WriteSummary(writer io.Writer, statistics types.RunStatistics, options SummaryOptions) error {
	heading := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)
	warning := color.New(color.FgYellow)
	for _, painter := range []*color.Color{heading, label, warning} {
		if options.Colorize {
			painter.EnableColor()
		} else {
			painter.DisableColor()
		}
	}

	writeLine := func(painter *color.Color, name string, value string) {
		fmt.Fprintf(writer, summaryLineFormat, painter.Sprint(name), value)
	}

	heading.Fprintln(writer, summaryTitle)
	if options.ExportPath != "" {
		writeLine(label, "Export:", options.ExportPath)
	}
	if options.ArchivePath != "" {
		writeLine(label, "Archive:", fmt.Sprintf("%s (%d entries)", options.ArchivePath, options.ArchiveEntries))
	}
	writeLine(label, "Files:", fmt.Sprintf("%d", statistics.TotalFiles))
	writeLine(label, "Lines:", fmt.Sprintf("%d", statistics.TotalLines))
	writeLine(label, "Size:", utils.FormatFileSize(statistics.TotalBytes))
	if statistics.TotalTokens > 0 {
		writeLine(label, "Tokens:", fmt.Sprintf("%d", statistics.TotalTokens))
	}
	writeLine(label, "Duration:", statistics.Duration.Round(durationRounding).String())

	skipped := []struct {
		name  string
		count int
	}{
		{name: "Ignored:", count: statistics.IgnoredFiles},
		{name: "Binary:", count: statistics.BinaryFiles},
		{name: "Too large:", count: statistics.LargeFiles},
		{name: "Errors:", count: statistics.ErrorFiles},
	}
	for _, entry := range skipped {
		painter := label
		if entry.count > 0 {
			painter = warning
		}
		writeLine(painter, entry.name, fmt.Sprintf("%d", entry.count))
	}

	distribution := TopTypes(statistics.FilesByType, distributionLimit)
	if len(distribution) == 0 {
		return nil
	}
	heading.Fprintln(writer, distributionTitle)
	for _, entry := range distribution {
		if _, writeError := fmt.Fprintf(writer, distributionEntryFormat, entry.Label, entry.Count); writeError != nil {
			return writeError
		}
	}
	return nil
}
