// Package types defines every cross‑package data structure used by the codeagg CLI.
package types

import "time"

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"

	CommandExport  = "export"
	CommandArchive = "archive"
	CommandTree    = "tree"
	CommandFolders = "folders"

	ArchiveFormatZip   = "zip"
	ArchiveFormatTarGz = "tar.gz"

	// UnknownTypeLabel is reported for extensions missing from the type registry.
	UnknownTypeLabel = "Unknown"
)

// FileOutcome is the single classification every candidate file receives during a run.
type FileOutcome string

const (
	OutcomeAccepted  FileOutcome = "accepted"
	OutcomeIgnored   FileOutcome = "ignored"
	OutcomeBinary    FileOutcome = "binary"
	OutcomeOversized FileOutcome = "oversized"
	OutcomeError     FileOutcome = "error"
)

// Configuration is the immutable input of one aggregation run.
type Configuration struct {
	Root               string
	IncludeExtensions  []string
	ExcludeExtensions  []string
	ExcludeDirectories []string
	// ExcludeDirectoryNames match a directory name at any depth.
	ExcludeDirectoryNames []string
	RespectIgnoreFile     bool
	IncludeHidden         bool
	MaxFileSizeBytes      int64
	IncludeLineNumbers    bool
	// MaxTraversalDepth bounds the walk; nil means unbounded.
	MaxTraversalDepth *int
	OutputPath        string
	// ProgressInterval is the number of accepted files between progress signals.
	ProgressInterval int
}

// FileRecord describes one accepted file.
type FileRecord struct {
	AbsolutePath string `json:"absolutePath"`
	RelativePath string `json:"relativePath"`
	TypeLabel    string `json:"type"`
	SizeBytes    int64  `json:"sizeBytes"`
	LineCount    int    `json:"lines"`
	Encoding     string `json:"encoding"`
	Tokens       int    `json:"tokens,omitempty"`
}

// RunStatistics accumulates the counters of one run.
type RunStatistics struct {
	RunID        string         `json:"runId"`
	TotalFiles   int            `json:"totalFiles"`
	TotalLines   int            `json:"totalLines"`
	TotalBytes   int64          `json:"totalBytes"`
	TotalTokens  int            `json:"totalTokens,omitempty"`
	IgnoredFiles int            `json:"ignoredFiles"`
	BinaryFiles  int            `json:"binaryFiles"`
	LargeFiles   int            `json:"largeFiles"`
	ErrorFiles   int            `json:"errors"`
	FilesByType  map[string]int `json:"filesByType"`
	Duration     time.Duration  `json:"duration"`
}

// NewRunStatistics returns zeroed statistics tagged with runID.
func NewRunStatistics(runID string) RunStatistics {
	return RunStatistics{RunID: runID, FilesByType: map[string]int{}}
}

// Record increments the counter matching outcome. Accepted files are
// recorded through Accept instead because they carry sizes and lines.
func (statistics *RunStatistics) Record(outcome FileOutcome) {
	switch outcome {
	case OutcomeIgnored:
		statistics.IgnoredFiles++
	case OutcomeBinary:
		statistics.BinaryFiles++
	case OutcomeOversized:
		statistics.LargeFiles++
	case OutcomeError:
		statistics.ErrorFiles++
	}
}

// Accept folds an accepted file into the statistics.
func (statistics *RunStatistics) Accept(record FileRecord) {
	if statistics.FilesByType == nil {
		statistics.FilesByType = map[string]int{}
	}
	statistics.TotalFiles++
	statistics.TotalLines += record.LineCount
	statistics.TotalBytes += record.SizeBytes
	statistics.TotalTokens += record.Tokens
	statistics.FilesByType[record.TypeLabel]++
}

// Candidates returns the number of files that received any outcome.
func (statistics RunStatistics) Candidates() int {
	return statistics.TotalFiles + statistics.IgnoredFiles + statistics.BinaryFiles + statistics.LargeFiles + statistics.ErrorFiles
}

// FolderNode is one directory returned by folder enumeration.
type FolderNode struct {
	AbsolutePath string `json:"absolutePath"`
	Name         string `json:"name"`
	RelativePath string `json:"relativePath"`
	Level        int    `json:"level"`
}

// Progress is the cooperative checkpoint emitted while a run is in flight.
type Progress struct {
	AcceptedFiles int
	Candidates    int
	CurrentPath   string
	Done          bool
}
