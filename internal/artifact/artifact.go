// Package artifact publishes output files atomically under an advisory lock.
//
// Content is written to a hidden temporary file next to the destination and
// renamed into place on Commit. A hidden lock file guards the destination
// against concurrent runs writing the same path.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	lockFileFormat       = ".%s.lock"
	tempFilePattern      = ".%s.tmp-*"
	tempFilePrefixFormat = ".%s.tmp-"
	publishedFileMode    = 0o644
	outputDirectoryMode  = 0o755
)

// ErrLocked reports that another run holds the destination lock.
var ErrLocked = errors.New("output is locked by another run")

// Artifact is an output file under construction.
type Artifact struct {
	path     string
	lockPath string
	lock     *flock.Flock
	file     *os.File
	finished bool
}

// LockPath returns the lock file guarding path.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), fmt.Sprintf(lockFileFormat, filepath.Base(path)))
}

// Create locks path and opens a temporary file for its content. The
// destination itself is untouched until Commit.
func Create(path string) (*Artifact, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return nil, fmt.Errorf("resolve output path %s: %w", path, absoluteError)
	}
	directory := filepath.Dir(absolutePath)
	if mkdirError := os.MkdirAll(directory, outputDirectoryMode); mkdirError != nil {
		return nil, fmt.Errorf("create output directory %s: %w", directory, mkdirError)
	}
	if info, statError := os.Stat(absolutePath); statError == nil && info.IsDir() {
		return nil, fmt.Errorf("output path %s is a directory", absolutePath)
	}

	lockPath := LockPath(absolutePath)
	lock := flock.New(lockPath)
	acquired, lockError := lock.TryLock()
	if lockError != nil {
		return nil, fmt.Errorf("failed to try lock on %s: %w", lockPath, lockError)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrLocked, absolutePath)
	}

	tempFile, createError := os.CreateTemp(directory, fmt.Sprintf(tempFilePattern, filepath.Base(absolutePath)))
	if createError != nil {
		releaseLock(lock, lockPath)
		return nil, fmt.Errorf("failed to create temp file for %s: %w", absolutePath, createError)
	}
	return &Artifact{path: absolutePath, lockPath: lockPath, lock: lock, file: tempFile}, nil
}

// Write appends to the temporary file.
func (artifact *Artifact) Write(data []byte) (int, error) {
	return artifact.file.Write(data)
}

// Path is the destination the artifact is published to.
func (artifact *Artifact) Path() string {
	return artifact.path
}

// Owns reports whether candidate is destination itself or one of the lock
// and temporary files Create makes for it. Both paths must be absolute.
func Owns(destination string, candidate string) bool {
	destination = filepath.Clean(destination)
	candidate = filepath.Clean(candidate)
	if candidate == destination || candidate == LockPath(destination) {
		return true
	}
	if filepath.Dir(candidate) != filepath.Dir(destination) {
		return false
	}
	return strings.HasPrefix(filepath.Base(candidate), fmt.Sprintf(tempFilePrefixFormat, filepath.Base(destination)))
}

// Commit syncs the content and renames it over the destination.
func (artifact *Artifact) Commit() error {
	if artifact.finished {
		return nil
	}
	artifact.finished = true
	defer releaseLock(artifact.lock, artifact.lockPath)

	tempPath := artifact.file.Name()
	if syncError := artifact.file.Sync(); syncError != nil {
		artifact.file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", syncError)
	}
	if closeError := artifact.file.Close(); closeError != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", closeError)
	}
	if chmodError := os.Chmod(tempPath, publishedFileMode); chmodError != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions: %w", chmodError)
	}
	if renameError := os.Rename(tempPath, artifact.path); renameError != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file to %s: %w", artifact.path, renameError)
	}
	return nil
}

// Abort discards the temporary file and releases the lock. It is a no-op
// after Commit.
func (artifact *Artifact) Abort() {
	if artifact.finished {
		return
	}
	artifact.finished = true
	artifact.file.Close()
	os.Remove(artifact.file.Name())
	releaseLock(artifact.lock, artifact.lockPath)
}

func releaseLock(lock *flock.Flock, lockPath string) {
	if unlockError := lock.Unlock(); unlockError == nil {
		os.Remove(lockPath)
	}
}
