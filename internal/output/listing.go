package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/codeagg/internal/types"
)

// Listing formats accepted by RenderRecords and RenderFolders.
const (
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	indentPrefix = ""
	indentSpacer = "  "

	recordLineFormat = "%s\t%s\t%d lines\t%d bytes\t%s\n"
	folderIndent     = "  "

	unsupportedFormatMessage = "unsupported format %q (use raw, json or xml)"
)

type xmlRecords struct {
	XMLName xml.Name           `xml:"files"`
	Records []types.FileRecord `xml:"file"`
}

type xmlFolders struct {
	XMLName xml.Name           `xml:"folders"`
	Folders []types.FolderNode `xml:"folder"`
}

// RenderRecords writes the accepted files of a run in the requested format.
func RenderRecords(writer io.Writer, records []types.FileRecord, format string) error {
	switch strings.ToLower(format) {
	case "", FormatRaw:
		for _, record := range records {
			if _, writeError := fmt.Fprintf(writer, recordLineFormat, record.RelativePath, record.TypeLabel, record.LineCount, record.SizeBytes, record.Encoding); writeError != nil {
				return writeError
			}
		}
		return nil
	case FormatJSON:
		if records == nil {
			records = []types.FileRecord{}
		}
		return writeJSON(writer, records)
	case FormatXML:
		return writeXML(writer, xmlRecords{Records: records})
	default:
		return fmt.Errorf(unsupportedFormatMessage, format)
	}
}

// RenderFolders writes enumerated folders in the requested format. The raw
// format indents every folder by its level.
func RenderFolders(writer io.Writer, folders []types.FolderNode, format string) error {
	switch strings.ToLower(format) {
	case "", FormatRaw:
		for _, folder := range folders {
			indent := strings.Repeat(folderIndent, max(folder.Level-1, 0))
			if _, writeError := fmt.Fprintf(writer, "%s%s/\n", indent, folder.RelativePath); writeError != nil {
				return writeError
			}
		}
		return nil
	case FormatJSON:
		if folders == nil {
			folders = []types.FolderNode{}
		}
		return writeJSON(writer, folders)
	case FormatXML:
		return writeXML(writer, xmlFolders{Folders: folders})
	default:
		return fmt.Errorf(unsupportedFormatMessage, format)
	}
}

func writeJSON(writer io.Writer, value any) error {
	encoded, jsonEncodeError := json.MarshalIndent(value, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return jsonEncodeError
	}
	_, writeError := fmt.Fprintln(writer, string(encoded))
	return writeError
}

func writeXML(writer io.Writer, value any) error {
	encoded, xmlMarshalError := xml.MarshalIndent(value, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return xmlMarshalError
	}
	_, writeError := fmt.Fprintln(writer, xml.Header+string(encoded))
	return writeError
}
