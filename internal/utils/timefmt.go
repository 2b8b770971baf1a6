package utils

import (
	"time"
)

const (
	timestampLayout     = "2006-01-02 15:04:05"
	fileNameStampLayout = "20060102_150405"
)

// FormatTimestamp returns the provided time in the local time zone using the
// export header layout.
func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.In(time.Local).Format(timestampLayout)
}

// FormatFileNameStamp returns a compact timestamp suitable for file names.
func FormatFileNameStamp(value time.Time) string {
	return value.In(time.Local).Format(fileNameStampLayout)
}
