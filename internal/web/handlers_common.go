package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseTimeParam accepts RFC 3339 timestamps or YYYY-MM-DD dates.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, core.InvalidOption(name, val, "want RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

// parseDelimiter validates a one-character delimiter.
func parseDelimiter(val string) (rune, error) {
	if utf8.RuneCountInString(val) != 1 {
		return 0, core.InvalidOption("delimiter", val, "must be a single character")
	}
	r, _ := utf8.DecodeRuneInString(val)
	return r, nil
}

// parseBoolField parses a form flag. Empty keeps def.
func parseBoolField(name, val string, def bool) (bool, error) {
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return def, core.InvalidOption(name, val, "must be true or false")
	}
	return b, nil
}

// formOptions overlays multipart form fields on base.
func formOptions(r *http.Request, base core.Options) (core.Options, error) {
	opts := base
	var err error

	if v := r.FormValue("delimiter"); v != "" {
		if opts.Delimiter, err = parseDelimiter(v); err != nil {
			return opts, err
		}
	}
	if opts.NormalizeHeaders, err = parseBoolField("normalize_headers", r.FormValue("normalize_headers"), opts.NormalizeHeaders); err != nil {
		return opts, err
	}
	if opts.DropEmptyRows, err = parseBoolField("drop_empty_rows", r.FormValue("drop_empty_rows"), opts.DropEmptyRows); err != nil {
		return opts, err
	}
	if opts.ApplyCRMMappings, err = parseBoolField("apply_crm_mappings", r.FormValue("apply_crm_mappings"), opts.ApplyCRMMappings); err != nil {
		return opts, err
	}
	if v := r.FormValue("file_type"); v != "" {
		if opts.FileType, err = core.ParseFileType(v); err != nil {
			return opts, err
		}
	}
	if v := r.FormValue("sheet_name"); v != "" {
		opts.SheetName = v
	}
	if v := r.FormValue("export_formats"); v != "" {
		formats := core.ParseFormats(v)
		if len(formats) == 0 {
			return opts, core.InvalidOption("export_formats", v, "use csv, json, excel or columns")
		}
		opts.ExportFormats = formats
	}
	return opts, nil
}

// textRequest is the JSON body for cleaning pasted CSV text.
type textRequest struct {
	CSVText          string  `json:"csv_text"`
	Delimiter        *string `json:"delimiter"`
	NormalizeHeaders *bool   `json:"normalize_headers"`
	DropEmptyRows    *bool   `json:"drop_empty_rows"`
}

func (t textRequest) options(base core.Options) (core.Options, error) {
	opts := base
	if t.Delimiter != nil {
		d, err := parseDelimiter(*t.Delimiter)
		if err != nil {
			return opts, err
		}
		opts.Delimiter = d
	}
	if t.NormalizeHeaders != nil {
		opts.NormalizeHeaders = *t.NormalizeHeaders
	}
	if t.DropEmptyRows != nil {
		opts.DropEmptyRows = *t.DropEmptyRows
	}
	return opts, nil
}
