package archive

import (
	stdzip "archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileEntry(testingInstance *testing.T, directory string, name string, content string) archives.FileInfo {
	testingInstance.Helper()
	fullPath := filepath.Join(directory, name)
	require.NoError(testingInstance, os.WriteFile(fullPath, []byte(content), 0o644))
	fileInfo, statError := os.Stat(fullPath)
	require.NoError(testingInstance, statError)
	return archives.FileInfo{
		FileInfo:      fileInfo,
		NameInArchive: name,
		Open: func() (fs.File, error) {
			return os.Open(fullPath)
		},
	}
}

func TestTrackedOpenerCountsWrittenEntries(testingInstance *testing.T) {
	directory := testingInstance.TempDir()
	entries := []archives.FileInfo{
		fileEntry(testingInstance, directory, "a.py", "print('a')\n"),
		fileEntry(testingInstance, directory, "empty.py", ""),
		fileEntry(testingInstance, directory, "c.py", "print('c')\n"),
	}
	written := 0
	for index := range entries {
		entries[index].Open = trackedOpener(entries[index].Open, entries[index].Size(), &written)
	}

	var buffer bytes.Buffer
	archiveError := archives.Zip{Compression: stdzip.Deflate}.Archive(context.Background(), &buffer, entries)
	require.NoError(testingInstance, archiveError)
	assert.Equal(testingInstance, 3, written)
}

func TestTrackedOpenerStopsAtFailedEntry(testingInstance *testing.T) {
	directory := testingInstance.TempDir()
	entries := []archives.FileInfo{
		fileEntry(testingInstance, directory, "a.py", "print('a')\n"),
		fileEntry(testingInstance, directory, "b.py", "print('b')\n"),
		fileEntry(testingInstance, directory, "c.py", "print('c')\n"),
	}
	vanishedError := errors.New("vanished")
	entries[1].Open = func() (fs.File, error) {
		return nil, vanishedError
	}
	written := 0
	for index := range entries {
		entries[index].Open = trackedOpener(entries[index].Open, entries[index].Size(), &written)
	}

	var buffer bytes.Buffer
	archiveError := archives.Zip{Compression: stdzip.Deflate}.Archive(context.Background(), &buffer, entries)
	require.ErrorIs(testingInstance, archiveError, vanishedError)
	assert.Equal(testingInstance, 1, written)
}

func TestTrackedFileRequiresFullContent(testingInstance *testing.T) {
	directory := testingInstance.TempDir()
	entry := fileEntry(testingInstance, directory, "a.py", "0123456789")

	testCases := []struct {
		name          string
		bytesToRead   int64
		expectedCount int
	}{
		{name: "partial read", bytesToRead: 4, expectedCount: 0},
		{name: "exact size without EOF", bytesToRead: 10, expectedCount: 1},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(testingInstance *testing.T) {
			written := 0
			file, openError := trackedOpener(entry.Open, entry.Size(), &written)()
			require.NoError(testingInstance, openError)
			_, copyError := io.CopyN(io.Discard, file, testCase.bytesToRead)
			require.NoError(testingInstance, copyError)
			require.NoError(testingInstance, file.Close())
			assert.Equal(testingInstance, testCase.expectedCount, written)
		})
	}
}
