// Package ingest turns uploaded bytes into analyzed datasets. Three formats
// are understood: delimited text, spreadsheet workbooks and JSON records.
package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

// Format names a supported input encoding.
type Format string

const (
	FormatDelimited   Format = "delimited"
	FormatSpreadsheet Format = "spreadsheet"
	FormatRecords     Format = "records"
)

const (
	mimeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeMacroSheet  = "application/vnd.ms-excel.sheet.macroenabled.12"
)

var mimeFormats = map[string]Format{
	"text/csv":                  FormatDelimited,
	"application/csv":           FormatDelimited,
	"text/tab-separated-values": FormatDelimited,
	"text/plain":                FormatDelimited,
	mimeSpreadsheet:             FormatSpreadsheet,
	mimeMacroSheet:              FormatSpreadsheet,
	"application/vnd.ms-excel":  FormatSpreadsheet,
	"application/json":          FormatRecords,
	"text/json":                 FormatRecords,
}

var extensionFormats = map[string]Format{
	".csv":  FormatDelimited,
	".tsv":  FormatDelimited,
	".txt":  FormatDelimited,
	".xlsx": FormatSpreadsheet,
	".xlsm": FormatSpreadsheet,
	".json": FormatRecords,
}

// DetectFormat resolves the format from the declared MIME type, then the file
// extension, then the content itself.
func DetectFormat(declaredMIME, filename string, data []byte) (Format, error) {
	if mt, _, err := mime.ParseMediaType(declaredMIME); err == nil {
		if f, ok := mimeFormats[strings.ToLower(mt)]; ok {
			return f, nil
		}
	}
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, nil
	}

	sniffed := mimetype.Detect(data)
	switch {
	case sniffed.Is("application/json"):
		return FormatRecords, nil
	case sniffed.Is(mimeSpreadsheet):
		return FormatSpreadsheet, nil
	case sniffed.Is("text/csv"), sniffed.Is("text/tab-separated-values"), sniffed.Is("text/plain"):
		return FormatDelimited, nil
	}

	reported := declaredMIME
	if reported == "" {
		reported = sniffed.String()
	}
	return "", apperrors.UnsupportedFormat(reported)
}

// ParseRows decodes data in the given format without analyzing it.
func ParseRows(format Format, data []byte) (dataset.RowSet, error) {
	switch format {
	case FormatDelimited:
		return ParseDelimited(data)
	case FormatSpreadsheet:
		return ParseSpreadsheet(data)
	case FormatRecords:
		return ParseRecords(data)
	default:
		return dataset.RowSet{}, apperrors.UnsupportedFormat(string(format))
	}
}

// Parse decodes and analyzes data in one step.
func Parse(format Format, data []byte) (*dataset.Dataset, error) {
	rs, err := ParseRows(format, data)
	if err != nil {
		return nil, err
	}
	return dataset.Analyze(rs)
}

// ParseUpload detects the format of an upload and analyzes it.
func ParseUpload(declaredMIME, filename string, data []byte) (*dataset.Dataset, Format, error) {
	format, err := DetectFormat(declaredMIME, filename, data)
	if err != nil {
		return nil, "", err
	}
	ds, err := Parse(format, data)
	if err != nil {
		return nil, format, err
	}
	return ds, format, nil
}
