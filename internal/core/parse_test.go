package core

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     FileType
	}{
		{"csv extension", "contacts.csv", "", FileCSV},
		{"xlsx extension", "Book.XLSX", "", FileExcel},
		{"xls extension", "old.xls", "", FileExcel},
		{"json extension", "data.json", "", FileJSON},
		{"tsv extension", "data.tsv", "", FileTSV},
		{"extension wins over content", "data.csv", `[{"a":1}]`, FileCSV},
		{"json array sniffed", "upload", `  [{"a":1}]`, FileJSON},
		{"json object sniffed", "", `{"a":1}`, FileJSON},
		{"broken json falls back to csv", "upload.txt", `[not json`, FileCSV},
		{"plain text is csv", "", "a,b\n1,2\n", FileCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFileType(tt.filename, []byte(tt.content)))
		})
	}
}

func TestParseFileType(t *testing.T) {
	ft, err := ParseFileType(" TSV ")
	require.NoError(t, err)
	assert.Equal(t, FileTSV, ft)

	_, err = ParseFileType("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestParse_Delimited(t *testing.T) {
	t.Run("csv with quotes and ragged rows", func(t *testing.T) {
		data := []byte("name,note\n\"Doe, Jane\",\"said \"\"hi\"\"\"\nsolo\n")
		g, ft, err := Parse(data, "x.csv", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, FileCSV, ft)
		assert.Equal(t, []string{"name", "note"}, g.Header)
		assert.Equal(t, [][]string{{"Doe, Jane", `said "hi"`}, {"solo"}}, g.Rows)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Delimiter = ';'
		g, _, err := Parse([]byte("a;b\n1;2\n"), "x.csv", opts)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "2"}}, g.Rows)
	})

	t.Run("tsv always uses tab", func(t *testing.T) {
		g, ft, err := Parse([]byte("a\tb\n1,5\t2\n"), "x.tsv", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, FileTSV, ft)
		assert.Equal(t, [][]string{{"1,5", "2"}}, g.Rows)
	})

	t.Run("bom stripped from header", func(t *testing.T) {
		g, _, err := Parse([]byte("\xEF\xBB\xBFid,name\n1,x\n"), "x.csv", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, "id", g.Header[0])
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := Parse(nil, "x.csv", DefaultOptions())
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("blank lines become empty rows", func(t *testing.T) {
		g, _, err := Parse([]byte("a,b\n\nJane,Doe\n\r\n\nJohn,Roe\n\n"), "x.csv", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{}, {"Jane", "Doe"}, {}, {}, {"John", "Roe"}, {}}, g.Rows)
	})

	t.Run("multi-line quoted field is one row", func(t *testing.T) {
		g, _, err := Parse([]byte("a,b\n\"line one\nline two\",2\n\n3,4"), "x.csv", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"line one\nline two", "2"}, {}, {"3", "4"}}, g.Rows)
	})

	t.Run("header only", func(t *testing.T) {
		g, _, err := Parse([]byte("a,b\n"), "x.csv", DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, g.Rows)
	})
}

func TestParse_JSON(t *testing.T) {
	t.Run("union of keys in first-seen order", func(t *testing.T) {
		data := []byte(`[{"b":"x","a":1.50},{"c":true,"a":null},"skip me",{"d":{"k":[1, 2]}}]`)
		g, ft, err := Parse(data, "in.json", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, FileJSON, ft)
		assert.Equal(t, []string{"b", "a", "c", "d"}, g.Header)
		assert.Equal(t, [][]string{
			{"x", "1.50", "", ""},
			{"", nullCell, "true", ""},
			{"", "", "", `{"k":[1,2]}`},
		}, g.Rows)
	})

	t.Run("single object wrapped", func(t *testing.T) {
		g, _, err := Parse([]byte(`{"name":"Jane"}`), "in.json", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"Jane"}}, g.Rows)
	})

	tests := []struct {
		name string
		data string
		want error
	}{
		{"invalid json", `[{"a":`, ErrInvalidInput},
		{"scalar top level", `42`, ErrInvalidInput},
		{"empty array", `[]`, ErrEmptyInput},
		{"no objects", `[1, 2]`, ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.data), "in.json", DefaultOptions())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func buildWorkbook(t *testing.T, sheets map[string][][]any, active string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	if _, ok := sheets["Sheet1"]; !ok {
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	idx, err := f.GetSheetIndex(active)
	require.NoError(t, err)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParse_Excel(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Contacts": {
			{"Name", "Amount", "Notes"},
			{"Jane", 1234.5, nil},
			{"John", 7, "vip"},
		},
		"Other": {
			{"x"},
			{"y"},
		},
	}, "Contacts")

	t.Run("active sheet", func(t *testing.T) {
		g, ft, err := Parse(data, "book.xlsx", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, FileExcel, ft)
		assert.Equal(t, []string{"Name", "Amount", "Notes"}, g.Header)
		require.Len(t, g.Rows, 2)
		assert.Equal(t, []string{"Jane", "1234.5", ""}, g.Rows[0])
		assert.Equal(t, []string{"John", "7", "vip"}, g.Rows[1])
	})

	t.Run("named sheet", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SheetName = "Other"
		g, _, err := Parse(data, "book.xlsx", opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, g.Header)
		assert.Equal(t, [][]string{{"y"}}, g.Rows)
	})

	t.Run("rows wider than header", func(t *testing.T) {
		wide := buildWorkbook(t, map[string][][]any{
			"Sheet1": {
				{"name"},
				{"Jane", "Boston", "MA"},
				{"John"},
			},
		}, "Sheet1")

		g, _, err := Parse(wide, "wide.xlsx", DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "", ""}, g.Header)
		assert.Equal(t, [][]string{{"Jane", "Boston", "MA"}, {"John", "", ""}}, g.Rows)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SheetName = "Missing"
		_, _, err := Parse(data, "book.xlsx", opts)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("legacy xls rejected", func(t *testing.T) {
		legacy := append(append([]byte{}, oleSignature...), make([]byte, 512)...)
		_, _, err := Parse(legacy, "old.xls", DefaultOptions())
		assert.ErrorIs(t, err, ErrUnsupportedFeature)
	})

	t.Run("garbage workbook", func(t *testing.T) {
		_, _, err := Parse([]byte("not a zip"), "book.xlsx", DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestOpenSource_StreamsRows(t *testing.T) {
	src, _, err := OpenSource([]byte("h\n1\n2\n3\n"), "x.csv", DefaultOptions())
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"h"}, src.Header())
	var got []string
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, row[0])
	}
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestOpenSource_UnknownOverride(t *testing.T) {
	opts := DefaultOptions()
	opts.FileType = "parquet"
	_, _, err := OpenSource(bytes.Repeat([]byte("a"), 4), "x", opts)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}
