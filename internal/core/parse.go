package core

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// DetectFileType picks the input type from the filename extension, then
// from content: text that opens with { or [ and is valid JSON is json,
// anything else is csv.
func DetectFileType(filename string, content []byte) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileCSV
	case ".xlsx", ".xls":
		return FileExcel
	case ".json":
		return FileJSON
	case ".tsv":
		return FileTSV
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(content, utf8BOM))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && gjson.ValidBytes(trimmed) {
		return FileJSON
	}
	return FileCSV
}

// ParseFileType validates an explicit file type name. The empty string
// means "detect".
func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	switch ft {
	case "", FileCSV, FileTSV, FileJSON, FileExcel:
		return ft, nil
	}
	return "", unsupported("unsupported file type %q", s)
}

// OpenSource opens a row source over data. The type comes from
// opts.FileType when set, otherwise from DetectFileType.
func OpenSource(data []byte, filename string, opts Options) (Source, FileType, error) {
	ft, err := ParseFileType(string(opts.FileType))
	if err != nil {
		return nil, "", err
	}
	if ft == "" {
		ft = DetectFileType(filename, data)
	}

	switch ft {
	case FileExcel:
		src, err := newExcelSource(data, opts.SheetName)
		if err != nil {
			return nil, ft, err
		}
		return src, ft, nil
	case FileJSON:
		g, err := parseJSONGrid(data)
		if err != nil {
			return nil, ft, err
		}
		return &sliceSource{header: g.Header, rows: g.Rows}, ft, nil
	case FileTSV:
		src, err := newCSVSource(data, '\t', ft)
		if err != nil {
			return nil, ft, err
		}
		return src, ft, nil
	default:
		src, err := newCSVSource(data, opts.delimiter(), ft)
		if err != nil {
			return nil, ft, err
		}
		return src, ft, nil
	}
}

// Parse reads the whole input into a Grid of raw rows.
func Parse(data []byte, filename string, opts Options) (*Grid, FileType, error) {
	src, ft, err := OpenSource(data, filename, opts)
	if err != nil {
		return nil, ft, err
	}
	defer src.Close()

	g := &Grid{Header: src.Header()}
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return g, ft, nil
		}
		if err != nil {
			return nil, ft, err
		}
		g.Rows = append(g.Rows, row)
	}
}
