package core

import (
	"encoding/binary"
	"strings"
)

// irrelevantIndicators mark placeholder rows when the row text starts or
// ends with one of them.
var irrelevantIndicators = []string{
	"test", "example", "sample", "dummy", "placeholder",
	"lorem ipsum", "xxx", "aaa", "123", "test@test.com",
}

// emptyRatioLimit is the share of blank cells above which a row is dropped.
const emptyRatioLimit = 0.8

// IsIrrelevantRow reports whether a reconciled row carries no useful data:
// it is empty, mostly blank, or reads like test/placeholder data.
func IsIrrelevantRow(row []string, width int) bool {
	if len(row) == 0 {
		return true
	}

	nonEmpty := make([]string, 0, len(row))
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}

	denom := width
	if denom < 1 {
		denom = 1
	}
	if float64(width-len(nonEmpty))/float64(denom) > emptyRatioLimit {
		return true
	}

	text := strings.ToLower(strings.Join(nonEmpty, " "))
	for _, ind := range irrelevantIndicators {
		if strings.HasPrefix(text, ind) || strings.HasSuffix(text, ind) {
			return true
		}
	}

	return len(nonEmpty) == 0
}

// isBlankRow reports whether every cell is empty after normalization.
func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// dedupeKey builds the duplicate-detection key for a row: each cell
// lowercased and trimmed, length-prefixed so cell boundaries cannot collide.
func dedupeKey(row []string) string {
	var b strings.Builder
	var lenBuf [binary.MaxVarintLen64]byte
	for _, c := range row {
		c = strings.ToLower(strings.TrimSpace(c))
		n := binary.PutUvarint(lenBuf[:], uint64(len(c)))
		b.Write(lenBuf[:n])
		b.WriteString(c)
	}
	return b.String()
}

// seenRows is the dedupe set for one run. It spans every chunk of a run.
type seenRows map[string]struct{}

// add records row and reports whether it was new.
func (s seenRows) add(row []string) bool {
	k := dedupeKey(row)
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}
