// Package core provides the tabular data cleaning engine.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"math"
	"time"
)

// FileType identifies the encoding of an input file.
type FileType string

const (
	FileCSV   FileType = "csv"
	FileTSV   FileType = "tsv"
	FileJSON  FileType = "json"
	FileExcel FileType = "excel"
)

// Format names an export format in an output bundle.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatExcel   Format = "excel"
	FormatColumns Format = "columns"
)

// AllFormats is the export set used when none is requested.
var AllFormats = []Format{FormatCSV, FormatJSON, FormatExcel, FormatColumns}

// Grid is a rectangular table: a header row plus data rows.
type Grid struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Width returns the number of header columns.
func (g *Grid) Width() int {
	return len(g.Header)
}

// Fix counter names.
const (
	FixTrimmedCells          = "trimmed_cells"
	FixNormalizedHeaders     = "normalized_headers"
	FixNormalizedDates       = "normalized_dates"
	FixNormalizedNumbers     = "normalized_numbers"
	FixEmptiesToBlank        = "empties_to_blank"
	FixDroppedEmptyRows      = "dropped_empty_rows"
	FixDuplicatesRemoved     = "duplicates_removed"
	FixIrrelevantRowsRemoved = "irrelevant_rows_removed"
)

// FixKinds lists every fix counter in report order.
var FixKinds = []string{
	FixTrimmedCells,
	FixNormalizedHeaders,
	FixNormalizedDates,
	FixNormalizedNumbers,
	FixEmptiesToBlank,
	FixDroppedEmptyRows,
	FixDuplicatesRemoved,
	FixIrrelevantRowsRemoved,
}

// Fixes counts the repairs applied during one run. Counters only go up.
type Fixes map[string]int

// NewFixes returns a Fixes map with every known counter set to zero.
func NewFixes() Fixes {
	f := make(Fixes, len(FixKinds))
	for _, k := range FixKinds {
		f[k] = 0
	}
	return f
}

func (f Fixes) inc(kind string) {
	f[kind]++
}

// Report describes one completed cleaning run.
type Report struct {
	RunID                 string            `json:"run_id"`
	FileName              string            `json:"file_name,omitempty"`
	RowsIn                int               `json:"rows_in"`
	RowsOut               int               `json:"rows_out"`
	ColumnsIn             int               `json:"columns_in"`
	ColumnsOut            int               `json:"columns_out"`
	HeaderMap             map[string]string `json:"header_map"`
	Fixes                 Fixes             `json:"fixes"`
	StartedAt             time.Time         `json:"started_at"`
	FinishedAt            time.Time         `json:"finished_at"`
	FileType              FileType          `json:"file_type"`
	CRMDetected           string            `json:"crm_detected,omitempty"`
	FieldMappings         map[string]string `json:"field_mappings"`
	DuplicatesRemoved     int               `json:"duplicates_removed"`
	IrrelevantRowsRemoved int               `json:"irrelevant_rows_removed"`
	Chunked               bool              `json:"chunked"`
	Chunks                int               `json:"chunks"`
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// DefaultChunkSize is the data row count above which the chunked path runs.
const DefaultChunkSize = 10000

// Options configures one cleaning run.
// Start from DefaultOptions; the zero value disables every boolean stage.
type Options struct {
	Delimiter        rune         // CSV field separator (TSV always uses tab)
	NormalizeHeaders bool         // Slugify headers that no CRM dialect maps
	DropEmptyRows    bool         // Drop rows whose cells are all blank
	ApplyCRMMappings bool         // Detect CRM dialects and rename columns
	FileType         FileType     // Explicit type override; "" detects
	SheetName        string       // Spreadsheet sheet; "" uses the active sheet
	ChunkSize        int          // Rows per batch for large inputs
	ExportFormats    []Format     // Formats to build; nil builds all
	Limits           ExportLimits // Row ceilings per export format
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Delimiter:        ',',
		NormalizeHeaders: true,
		DropEmptyRows:    true,
		ApplyCRMMappings: true,
		ChunkSize:        DefaultChunkSize,
		Limits:           DefaultExportLimits(),
	}
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// maxChunkSize leaves room for the one-row lookahead that decides whether
// an input is chunked.
const maxChunkSize = math.MaxInt - 1

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return min(o.ChunkSize, maxChunkSize)
}

func (o Options) formats() []Format {
	if len(o.ExportFormats) == 0 {
		return AllFormats
	}
	return o.ExportFormats
}

// ParseFormats parses a comma-separated export format list such as
// "csv,json". Unknown names are ignored; an empty list yields nil.
func ParseFormats(s string) []Format {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range splitTrim(s, ",") {
		f := Format(part)
		switch f {
		case FormatCSV, FormatJSON, FormatExcel, FormatColumns:
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
