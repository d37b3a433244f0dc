package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataclean/internal/logging"
)

// Engine runs cleaning jobs. It keeps no per-run state, so one Engine can
// serve any number of concurrent runs.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// run holds the mutable state of one cleaning run. It is never shared.
type run struct {
	width  int
	delim  rune
	drop   bool
	fixes  Fixes
	seen   seenRows
	rows   [][]string
	rowsIn int
	chunks int
}

func newRun(width int, opts Options) *run {
	return &run{
		width: width,
		delim: opts.delimiter(),
		drop:  opts.DropEmptyRows,
		fixes: NewFixes(),
		seen:  make(seenRows),
	}
}

// processRow takes one raw data row through reconcile, normalize, the
// empty and irrelevant filters and dedupe. A row leaves at the first stage
// that drops it.
func (r *run) processRow(raw []string) {
	r.rowsIn++

	row := ReconcileRow(raw, r.width, r.delim, r.fixes)
	cleaned := make([]string, len(row))
	for i, c := range row {
		cleaned[i] = NormalizeCell(c, r.fixes)
	}

	if r.drop && isBlankRow(cleaned) {
		r.fixes.inc(FixDroppedEmptyRows)
		return
	}
	if IsIrrelevantRow(cleaned, r.width) {
		r.fixes.inc(FixIrrelevantRowsRemoved)
		return
	}
	if !r.seen.add(cleaned) {
		r.fixes.inc(FixDuplicatesRemoved)
		return
	}
	r.rows = append(r.rows, cleaned)
}

// Clean parses data and returns the cleaned grid with its report.
// Inputs with more than opts.ChunkSize data rows are processed in chunks;
// the result is the same either way.
func (e *Engine) Clean(ctx context.Context, data []byte, filename string, opts Options) (*Grid, Report, error) {
	started := e.now()
	runID := e.newID()
	logger := logging.WithFields(ctx, "run_id", runID, "file", filename)

	src, ft, err := OpenSource(data, filename, opts)
	if err != nil {
		return nil, Report{}, err
	}
	defer src.Close()

	rawHeader := src.Header()
	hr := mapHeaders(rawHeader, opts)
	r := newRun(len(rawHeader), opts)
	r.fixes[FixNormalizedHeaders] += hr.changed

	logger.Debug("clean started",
		"file_type", ft,
		"columns", len(rawHeader),
		"crm", hr.dialect,
	)

	size := opts.chunkSize()
	head, err := readRows(src, size+1)
	if err != nil {
		return nil, Report{}, err
	}

	chunked := len(head) > size
	if chunked {
		if err := e.processChunked(ctx, src, head, size, r); err != nil {
			return nil, Report{}, err
		}
	} else {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		for _, row := range head {
			r.processRow(row)
		}
		r.chunks = 1
	}

	mappings := make(map[string]string, len(hr.mapping))
	for k, v := range hr.mapping {
		mappings[k] = v
	}

	report := Report{
		RunID:                 runID,
		FileName:              filename,
		RowsIn:                r.rowsIn,
		RowsOut:               len(r.rows),
		ColumnsIn:             len(rawHeader),
		ColumnsOut:            len(hr.header),
		HeaderMap:             hr.mapping,
		Fixes:                 r.fixes,
		StartedAt:             started,
		FinishedAt:            e.now(),
		FileType:              ft,
		CRMDetected:           hr.dialect,
		FieldMappings:         mappings,
		DuplicatesRemoved:     r.fixes[FixDuplicatesRemoved],
		IrrelevantRowsRemoved: r.fixes[FixIrrelevantRowsRemoved],
		Chunked:               chunked,
		Chunks:                r.chunks,
	}

	logger.Debug("clean finished",
		"rows_in", report.RowsIn,
		"rows_out", report.RowsOut,
		"chunks", report.Chunks,
		"duration_ms", report.Duration().Milliseconds(),
	)

	return &Grid{Header: hr.header, Rows: r.rows}, report, nil
}

// CleanFile cleans data and builds the requested export bundle.
func (e *Engine) CleanFile(ctx context.Context, data []byte, filename string, opts Options) (*Bundle, Report, error) {
	g, report, err := e.Clean(ctx, data, filename, opts)
	if err != nil {
		return nil, Report{}, err
	}

	bundle, err := Export(g, opts)
	if err != nil {
		return nil, Report{}, fmt.Errorf("export: %w", err)
	}
	return bundle, report, nil
}

// CleanText cleans delimited text and returns the cleaned CSV. CRM mapping
// is not applied to text input.
func (e *Engine) CleanText(ctx context.Context, text string, opts Options) (string, Report, error) {
	if strings.TrimSpace(text) == "" {
		return "", Report{}, MissingField("csv_text")
	}

	opts.ApplyCRMMappings = false
	opts.FileType = FileCSV
	opts.SheetName = ""

	g, report, err := e.Clean(ctx, []byte(text), "", opts)
	if err != nil {
		return "", Report{}, err
	}

	out, err := WriteCSV(g, opts.delimiter())
	if err != nil {
		return "", Report{}, fmt.Errorf("write csv: %w", err)
	}
	return out, report, nil
}

// readRows reads up to n rows from src. Fewer rows means src is exhausted.
func readRows(src Source, n int) ([][]string, error) {
	rows := make([][]string, 0, max(0, min(n, 1024)))
	for len(rows) < n {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
