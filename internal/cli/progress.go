package cli

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/temirov/codeagg/internal/types"
)

const (
	progressDescription     = "Exporting"
	progressThrottle        = 65 * time.Millisecond
	progressSpinnerType     = 14
	unknownProgressMaxValue = -1
)

// progressReporter renders engine checkpoints as a spinner on terminals and
// stays silent otherwise.
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(writer io.Writer, interactive bool) *progressReporter {
	if !interactive {
		return &progressReporter{}
	}
	bar := progressbar.NewOptions(unknownProgressMaxValue,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetDescription(progressDescription),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(progressSpinnerType),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionClearOnFinish(),
	)
	return &progressReporter{bar: bar}
}

// Update matches export.ProgressFunc.
func (reporter *progressReporter) Update(progress types.Progress) {
	if reporter.bar == nil {
		return
	}
	if progress.CurrentPath != "" {
		reporter.bar.Describe(progressDescription + " " + progress.CurrentPath)
	}
	reporter.bar.Set(progress.AcceptedFiles)
}

// Finish clears the spinner.
func (reporter *progressReporter) Finish() {
	if reporter.bar == nil {
		return
	}
	reporter.bar.Finish()
}
