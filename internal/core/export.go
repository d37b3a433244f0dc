package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// excelSheetName names the single sheet of every exported workbook.
const excelSheetName = "Cleaned Data"

// ExportLimits caps the row count of the memory-heavy outputs. Outputs over
// a cap are skipped and reported in Bundle.Skipped; the CSV outputs have no
// cap. Non-positive values fall back to the defaults.
type ExportLimits struct {
	ExcelRows       int `json:"excel_rows" yaml:"excel_rows"`
	JSONRows        int `json:"json_rows" yaml:"json_rows"`
	ColumnExcelRows int `json:"column_excel_rows" yaml:"column_excel_rows"`
	ColumnJSONRows  int `json:"column_json_rows" yaml:"column_json_rows"`
}

// DefaultExportLimits returns the standard ceilings.
func DefaultExportLimits() ExportLimits {
	return ExportLimits{
		ExcelRows:       50000,
		JSONRows:        100000,
		ColumnExcelRows: 10000,
		ColumnJSONRows:  25000,
	}
}

func (l ExportLimits) withDefaults() ExportLimits {
	d := DefaultExportLimits()
	if l.ExcelRows <= 0 {
		l.ExcelRows = d.ExcelRows
	}
	if l.JSONRows <= 0 {
		l.JSONRows = d.JSONRows
	}
	if l.ColumnExcelRows <= 0 {
		l.ColumnExcelRows = d.ColumnExcelRows
	}
	if l.ColumnJSONRows <= 0 {
		l.ColumnJSONRows = d.ColumnJSONRows
	}
	return l
}

// Bundle holds the serialized outputs of one run. Binary entries encode
// as base64 in JSON.
type Bundle struct {
	CSV     string                 `json:"csv,omitempty"`
	JSON    string                 `json:"json,omitempty"`
	Excel   []byte                 `json:"excel,omitempty"`
	Columns map[string]ColumnFiles `json:"columns,omitempty"`
	Skipped map[string]string      `json:"skipped,omitempty"` // output -> reason
	Notes   []string               `json:"notes,omitempty"`
}

// ColumnFiles holds the single-column exports of one header.
type ColumnFiles struct {
	CSV   string `json:"csv"`
	JSON  string `json:"json,omitempty"`
	Excel []byte `json:"excel,omitempty"`
}

// Skip keys for per-column outputs.
const (
	skipColumnJSON  = "columns.json"
	skipColumnExcel = "columns.excel"
)

func (b *Bundle) skip(key, reason string) {
	b.Skipped[key] = reason
	b.Notes = append(b.Notes, reason)
}

// Export serializes a cleaned grid into the formats opts asks for.
func Export(g *Grid, opts Options) (*Bundle, error) {
	lim := opts.Limits.withDefaults()
	n := len(g.Rows)
	want := make(map[Format]bool)
	for _, f := range opts.formats() {
		want[f] = true
	}

	b := &Bundle{Skipped: make(map[string]string)}

	if want[FormatCSV] {
		out, err := WriteCSV(g, opts.delimiter())
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		b.CSV = out
	}

	if want[FormatJSON] {
		if n > lim.JSONRows {
			b.skip(string(FormatJSON), fmt.Sprintf("JSON export skipped for %d rows (limit %d)", n, lim.JSONRows))
		} else {
			out, err := RowsToJSON(g.Header, g.Rows)
			if err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
			b.JSON = out
		}
	}

	if want[FormatExcel] {
		if n > lim.ExcelRows {
			b.skip(string(FormatExcel), fmt.Sprintf("Excel export skipped for %d rows (limit %d)", n, lim.ExcelRows))
		} else if out, err := RowsToExcel(g.Header, g.Rows); err != nil {
			b.skip(string(FormatExcel), fmt.Sprintf("Excel export failed: %v", err))
		} else {
			b.Excel = out
		}
	}

	if want[FormatColumns] {
		cols, err := columnFiles(g, want[FormatJSON], want[FormatExcel], lim, b)
		if err != nil {
			return nil, fmt.Errorf("columns: %w", err)
		}
		b.Columns = cols
	}

	return b, nil
}

// columnFiles builds one export set per header. CSV is always produced;
// JSON and Excel follow the full-output formats and their own ceilings.
func columnFiles(g *Grid, withJSON, withExcel bool, lim ExportLimits, b *Bundle) (map[string]ColumnFiles, error) {
	n := len(g.Rows)
	if withJSON && n > lim.ColumnJSONRows {
		b.skip(skipColumnJSON, fmt.Sprintf("Column JSON files skipped for %d rows (limit %d)", n, lim.ColumnJSONRows))
		withJSON = false
	}
	if withExcel && n > lim.ColumnExcelRows {
		b.skip(skipColumnExcel, fmt.Sprintf("Column Excel files skipped for %d rows (limit %d)", n, lim.ColumnExcelRows))
		withExcel = false
	}

	out := make(map[string]ColumnFiles, len(g.Header))
	for i, h := range g.Header {
		header := []string{h}
		rows := make([][]string, n)
		for j, row := range g.Rows {
			if i < len(row) {
				rows[j] = []string{row[i]}
			} else {
				rows[j] = []string{""}
			}
		}
		col := &Grid{Header: header, Rows: rows}

		var files ColumnFiles
		var err error
		if files.CSV, err = WriteCSV(col, ','); err != nil {
			return nil, err
		}
		if withJSON {
			if files.JSON, err = RowsToJSON(header, rows); err != nil {
				return nil, err
			}
		}
		if withExcel {
			if files.Excel, err = RowsToExcel(header, rows); err != nil {
				b.skip(skipColumnExcel, fmt.Sprintf("Column Excel export failed for %q: %v", h, err))
				files.Excel = nil
			}
		}
		out[h] = files
	}
	return out, nil
}

// RowsToJSON renders rows as an indented JSON array of objects whose keys
// follow header order. A repeated header keeps its first position and the
// value of its last column.
func RowsToJSON(header []string, rows [][]string) (string, error) {
	keys := make([]string, 0, len(header))
	last := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := last[h]; !ok {
			keys = append(keys, h)
		}
		last[h] = i
	}

	if len(rows) == 0 {
		return "[]", nil
	}

	jw := newJSONWriter()
	jw.buf.WriteString("[\n")
	for r, row := range rows {
		if len(keys) == 0 {
			jw.buf.WriteString("  {}")
		} else {
			jw.buf.WriteString("  {\n")
			for k, key := range keys {
				idx := last[key]
				val := ""
				if idx < len(row) {
					val = row[idx]
				}
				jw.buf.WriteString("    ")
				if err := jw.str(key); err != nil {
					return "", err
				}
				jw.buf.WriteString(": ")
				if err := jw.str(val); err != nil {
					return "", err
				}
				if k < len(keys)-1 {
					jw.buf.WriteByte(',')
				}
				jw.buf.WriteByte('\n')
			}
			jw.buf.WriteString("  }")
		}
		if r < len(rows)-1 {
			jw.buf.WriteByte(',')
		}
		jw.buf.WriteByte('\n')
	}
	jw.buf.WriteByte(']')
	return jw.buf.String(), nil
}

// jsonWriter appends JSON string literals without HTML escaping.
type jsonWriter struct {
	buf     bytes.Buffer
	scratch bytes.Buffer
	enc     *json.Encoder
}

func newJSONWriter() *jsonWriter {
	jw := &jsonWriter{}
	jw.enc = json.NewEncoder(&jw.scratch)
	jw.enc.SetEscapeHTML(false)
	return jw
}

func (jw *jsonWriter) str(s string) error {
	jw.scratch.Reset()
	if err := jw.enc.Encode(s); err != nil {
		return err
	}
	jw.buf.Write(bytes.TrimSuffix(jw.scratch.Bytes(), []byte{'\n'}))
	return nil
}

// RowsToExcel writes header and rows to a one-sheet workbook. Every cell is
// stored as text.
func RowsToExcel(header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), excelSheetName); err != nil {
		return nil, err
	}
	sw, err := f.NewStreamWriter(excelSheetName)
	if err != nil {
		return nil, err
	}

	writeRow := func(rowNum int, cells []string) error {
		vals := make([]interface{}, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, vals)
	}

	if err := writeRow(1, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV renders a grid, header first, with "\n" line endings. A record
// made of one empty field is written as "" so it survives a round trip.
func WriteCSV(g *Grid, delim rune) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim

	write := func(rec []string) error {
		if len(rec) == 1 && rec[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			return nil
		}
		return w.Write(rec)
	}

	if err := write(g.Header); err != nil {
		return "", err
	}
	for _, row := range g.Rows {
		if err := write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
