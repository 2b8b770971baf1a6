// Package clipboard copies finished exports to the system clipboard.
package clipboard

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
)

// DefaultMaxCopyBytes bounds the export size placed on the clipboard.
const DefaultMaxCopyBytes int64 = 50 * 1024 * 1024

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// CopyFile places the content of the file at path on the clipboard. Files
// larger than maxBytes are refused; a non-positive maxBytes applies
// DefaultMaxCopyBytes.
func CopyFile(copier Copier, path string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxCopyBytes
	}
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		return fmt.Errorf("stat %s for clipboard: %w", path, statError)
	}
	if fileInfo.Size() > maxBytes {
		return fmt.Errorf("%s is %d bytes, above the clipboard limit of %d bytes", path, fileInfo.Size(), maxBytes)
	}
	content, readError := os.ReadFile(path)
	if readError != nil {
		return fmt.Errorf("read %s for clipboard: %w", path, readError)
	}
	if copyError := copier.Copy(string(content)); copyError != nil {
		return fmt.Errorf("copy %s to clipboard: %w", path, copyError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
