package core

import (
	"fmt"
	"strings"
)

// DetectDialect returns the first dialect, in priority order, that has at
// least one indicator among the headers. Header comparison ignores case and
// surrounding whitespace.
func DetectDialect(headers []string) (Dialect, bool) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, d := range Dialects() {
		for _, ind := range d.Indicators {
			if present[ind] {
				return d, true
			}
		}
	}
	return Dialect{}, false
}

// MapHeaders renames headers through the dialect's field table.
// Headers the table does not know are slugified.
func (d Dialect) MapHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if mapped, ok := d.Fields[strings.ToLower(strings.TrimSpace(h))]; ok {
			out[i] = mapped
			continue
		}
		out[i] = SlugifyHeader(h)
	}
	return out
}

// headerResult is the outcome of header mapping for one run.
type headerResult struct {
	header  []string
	mapping map[string]string // original -> final
	dialect string
	changed int
}

// mapHeaders produces the final header row. With CRM mapping enabled a
// detected dialect wins; otherwise headers are slugified or just trimmed.
func mapHeaders(raw []string, opts Options) headerResult {
	var final []string
	var dialect string

	if d, ok := detectIf(opts.ApplyCRMMappings, raw); ok {
		final = d.MapHeaders(raw)
		dialect = d.Name
	} else {
		final = make([]string, len(raw))
		for i, h := range raw {
			if opts.NormalizeHeaders {
				final[i] = SlugifyHeader(h)
			} else {
				final[i] = strings.TrimSpace(h)
			}
		}
	}

	final = uniqueHeaders(final)

	res := headerResult{
		header:  final,
		mapping: make(map[string]string, len(raw)),
		dialect: dialect,
	}
	for i, h := range raw {
		res.mapping[h] = final[i]
		if final[i] != h {
			res.changed++
		}
	}
	return res
}

func detectIf(enabled bool, headers []string) (Dialect, bool) {
	if !enabled {
		return Dialect{}, false
	}
	return DetectDialect(headers)
}

// uniqueHeaders suffixes repeated headers with _2, _3 and so on, skipping
// names already present, so every column keeps its own key in JSON and
// per-column exports.
func uniqueHeaders(headers []string) []string {
	taken := make(map[string]bool, len(headers))
	for _, h := range headers {
		taken[h] = true
	}

	used := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := h
		if used[h] {
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", h, n)
				if !taken[name] && !used[name] {
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}
