package utils

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// EncodingSniffLength is the number of leading bytes inspected by DetectEncoding.
	EncodingSniffLength = 10 * 1024
	// DefaultEncoding is used whenever detection is not possible.
	DefaultEncoding = "UTF-8"

	replacementCharacter = "�"
)

// DetectEncoding guesses the text encoding of the file at path from its first
// EncodingSniffLength bytes. Empty, unreadable, or undetectable files report
// DefaultEncoding.
func DetectEncoding(path string) string {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return DefaultEncoding
	}
	defer fileHandle.Close()

	buffer := make([]byte, EncodingSniffLength)
	bytesRead, readError := io.ReadFull(fileHandle, buffer)
	if readError != nil && readError != io.EOF && readError != io.ErrUnexpectedEOF {
		return DefaultEncoding
	}
	return DetectEncodingBytes(buffer[:bytesRead])
}

// DetectEncodingBytes guesses the encoding of sample.
func DetectEncodingBytes(sample []byte) string {
	if len(sample) == 0 {
		return DefaultEncoding
	}
	if validUTF8Prefix(sample) {
		return DefaultEncoding
	}
	result, detectError := chardet.NewTextDetector().DetectBest(sample)
	if detectError != nil || result == nil || result.Charset == "" {
		return DefaultEncoding
	}
	return result.Charset
}

// DecodeText converts data from encodingName to UTF-8. Invalid sequences are
// replaced with U+FFFD; an unknown encoding name falls back to UTF-8.
func DecodeText(data []byte, encodingName string) string {
	if strings.EqualFold(encodingName, DefaultEncoding) || encodingName == "" {
		return strings.ToValidUTF8(string(data), replacementCharacter)
	}
	textEncoding, lookupError := htmlindex.Get(encodingName)
	if lookupError != nil {
		return strings.ToValidUTF8(string(data), replacementCharacter)
	}
	decoded, decodeError := textEncoding.NewDecoder().Bytes(data)
	if decodeError != nil {
		return strings.ToValidUTF8(string(data), replacementCharacter)
	}
	return strings.ToValidUTF8(string(decoded), replacementCharacter)
}

// validUTF8Prefix tolerates a multi-byte rune cut off by the sample boundary.
func validUTF8Prefix(sample []byte) bool {
	if utf8.Valid(sample) {
		return true
	}
	for trim := 1; trim < utf8.UTFMax && trim < len(sample); trim++ {
		if utf8.Valid(sample[:len(sample)-trim]) {
			return !utf8.FullRune(sample[len(sample)-trim:])
		}
	}
	return false
}
