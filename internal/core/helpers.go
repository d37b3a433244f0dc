package core

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyHeader lowercases a header and collapses every run of characters
// outside [a-z0-9] into a single underscore. A header with nothing left
// becomes "column".
func SlugifyHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = nonSlugChars.ReplaceAllString(h, "_")
	h = strings.Trim(h, "_")
	if h == "" {
		return "column"
	}
	return h
}

// splitTrim splits s on sep, trims each part and drops empty parts.
func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
