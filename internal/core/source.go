package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

// Source yields the rows of one parsed input. Header returns the first
// row; Next returns the following rows one at a time and io.EOF after the
// last one. Rows are raw: they have not been reconciled to header width.
type Source interface {
	Header() []string
	Next() ([]string, error)
	Close() error
}

// csvSource reads delimited text record by record. encoding/csv skips
// blank lines; csvSource yields an empty record for each of them so a blank
// line counts as a structurally empty row.
type csvSource struct {
	r      *csv.Reader
	lines  *lineCounter
	header []string
	end    int        // last line of the previous record
	queue  [][]string // records waiting to be returned
}

func newCSVSource(data []byte, delim rune, ft FileType) (*csvSource, error) {
	lc := &lineCounter{r: decodeText(bytes.NewReader(data))}
	cr := csv.NewReader(lc)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, emptyInput("%s file appears to be empty", strings.ToUpper(string(ft)))
	}
	if err != nil {
		return nil, invalidInput(err, "malformed %s input", ft)
	}
	return &csvSource{r: cr, lines: lc, header: header, end: recordEnd(cr, header)}, nil
}

func (s *csvSource) Header() []string { return s.header }

func (s *csvSource) Next() ([]string, error) {
	if len(s.queue) == 0 {
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
	rec := s.queue[0]
	s.queue = s.queue[1:]
	return rec, nil
}

// fill queues the next record, preceded by one empty record per blank line
// skipped before it.
func (s *csvSource) fill() error {
	rec, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		total := s.lines.count()
		for ; s.end < total; s.end++ {
			s.queue = append(s.queue, []string{})
		}
		if len(s.queue) == 0 {
			return io.EOF
		}
		return nil
	}
	if err != nil {
		return invalidInput(err, "malformed delimited input")
	}

	start, _ := s.r.FieldPos(0)
	for line := s.end + 1; line < start; line++ {
		s.queue = append(s.queue, []string{})
	}
	s.end = recordEnd(s.r, rec)
	s.queue = append(s.queue, rec)
	return nil
}

// recordEnd returns the line on which the record just read ends. A quoted
// last field may span several lines.
func recordEnd(r *csv.Reader, rec []string) int {
	last := len(rec) - 1
	line, _ := r.FieldPos(last)
	return line + strings.Count(rec[last], "\n")
}

// lineCounter counts the lines passing through it. A final line without a
// trailing newline still counts.
type lineCounter struct {
	r        io.Reader
	newlines int
	last     byte
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.newlines += bytes.Count(p[:n], []byte{'\n'})
		c.last = p[n-1]
	}
	return n, err
}

func (c *lineCounter) count() int {
	if c.last != 0 && c.last != '\n' {
		return c.newlines + 1
	}
	return c.newlines
}

func (s *csvSource) Close() error { return nil }

// oleSignature opens every legacy BIFF (.xls) workbook.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// excelSource walks one worksheet with the excelize row iterator.
type excelSource struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	width  int // widest row of the sheet; rows are padded to it
}

func newExcelSource(data []byte, sheet string) (*excelSource, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return nil, unsupported("legacy .xls workbooks are not supported, save the file as .xlsx")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, invalidInput(err, "unreadable spreadsheet")
	}

	name := sheet
	if name == "" {
		name = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		f.Close()
		return nil, invalidInput(err, "sheet %q not found", name)
	}

	width, err := sheetWidth(f, name)
	if err != nil {
		f.Close()
		return nil, invalidInput(err, "read sheet %q", name)
	}
	rows, err := f.Rows(name)
	if err != nil {
		f.Close()
		return nil, invalidInput(err, "read sheet %q", name)
	}

	s := &excelSource{f: f, rows: rows, width: width}
	header, err := s.Next()
	if errors.Is(err, io.EOF) {
		s.Close()
		return nil, emptyInput("EXCEL file appears to be empty")
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	s.header = header
	return s, nil
}

// sheetWidth returns the widest row of the sheet. The stored dimension is
// often stale (excelize itself writes A1), so the cells are scanned and the
// dimension only raises the result.
func sheetWidth(f *excelize.File, sheet string) (int, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	width := dimensionWidth(f, sheet)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return 0, err
		}
		width = max(width, len(cols))
	}
	return width, rows.Error()
}

// dimensionWidth returns the column count of the sheet's recorded used
// range, or 0 when the workbook does not record one.
func dimensionWidth(f *excelize.File, sheet string) int {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return 0
	}
	end := dim
	if i := strings.IndexByte(dim, ':'); i >= 0 {
		end = dim[i+1:]
	}
	col, _, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return 0
	}
	return col
}

func (s *excelSource) Header() []string { return s.header }

func (s *excelSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, invalidInput(err, "read spreadsheet rows")
		}
		return nil, io.EOF
	}
	cols, err := s.rows.Columns()
	if err != nil {
		return nil, invalidInput(err, "read spreadsheet row")
	}
	// excelize drops trailing empty cells; every row spans the widest row
	for len(cols) < s.width {
		cols = append(cols, "")
	}
	return cols, nil
}

func (s *excelSource) Close() error {
	rowsErr := s.rows.Close()
	if err := s.f.Close(); err != nil {
		return err
	}
	return rowsErr
}

// sliceSource serves rows already held in memory.
type sliceSource struct {
	header []string
	rows   [][]string
	pos    int
}

func (s *sliceSource) Header() []string { return s.header }

func (s *sliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceSource) Close() error { return nil }

// parseJSONGrid converts an array of objects (or one object) into rows.
// The header is the union of object keys in first-seen order.
func parseJSONGrid(data []byte) (*Grid, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !gjson.ValidBytes(data) {
		return nil, invalidInput(nil, "invalid JSON")
	}

	root := gjson.ParseBytes(data)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		items = []gjson.Result{root}
	default:
		return nil, invalidInput(nil, "JSON must be an array of objects or a single object")
	}
	if len(items) == 0 {
		return nil, emptyInput("JSON appears to be empty")
	}

	var header []string
	index := make(map[string]int)
	objects := make([]gjson.Result, 0, len(items))
	for _, it := range items {
		if !it.IsObject() {
			continue
		}
		objects = append(objects, it)
		it.ForEach(func(k, _ gjson.Result) bool {
			key := k.String()
			if _, ok := index[key]; !ok {
				index[key] = len(header)
				header = append(header, key)
			}
			return true
		})
	}
	if len(header) == 0 {
		return nil, emptyInput("JSON contains no object fields")
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(header))
		obj.ForEach(func(k, v gjson.Result) bool {
			row[index[k.String()]] = jsonCell(v)
			return true
		})
		rows = append(rows, row)
	}
	return &Grid{Header: header, Rows: rows}, nil
}

// jsonCell renders one JSON value as cell text.
func jsonCell(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return nullCell
	case gjson.String:
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return v.Raw
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	}
}
