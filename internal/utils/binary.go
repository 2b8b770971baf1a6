package utils

import (
	"bytes"
	"io"
	"os"
)

// BinarySniffLength is the number of leading bytes inspected when classifying a file.
const BinarySniffLength = 1024

// IsBinary reports whether data contains a NUL byte within its first
// BinarySniffLength bytes. The check is a heuristic: formats that open with a
// long NUL-free header are reported as text.
func IsBinary(data []byte) bool {
	if len(data) > BinarySniffLength {
		data = data[:BinarySniffLength]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// IsFileBinary reads up to BinarySniffLength bytes from the file at path and
// reports whether they look binary. A file that cannot be opened or read is
// reported as binary.
func IsFileBinary(path string) bool {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return true
	}
	defer fileHandle.Close()

	buffer := make([]byte, BinarySniffLength)
	bytesRead, readError := io.ReadFull(fileHandle, buffer)
	if readError != nil && readError != io.EOF && readError != io.ErrUnexpectedEOF {
		return true
	}
	return IsBinary(buffer[:bytesRead])
}
