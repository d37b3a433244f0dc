package core

import (
	"regexp"
	"strings"
)

var (
	thousandsHead = regexp.MustCompile(`^-?[0-9]{1,3}$`)
	thousandsTail = regexp.MustCompile(`^[0-9]{3}(\.[0-9]+)?$`)
)

// ReconcileRow forces row to exactly width cells.
//
// Short rows are padded with "". Long rows first get adjacent cells that
// look like a number split on its thousands separator ("1" + "234.50")
// merged back into one cell; any overflow left after that is joined into
// the last column with the delimiter. The input slice is never modified.
func ReconcileRow(row []string, width int, delim rune, fixes Fixes) []string {
	switch {
	case len(row) == width:
		return row
	case len(row) < width:
		out := make([]string, width)
		copy(out, row)
		return out
	}

	out := make([]string, len(row))
	copy(out, row)

	i := 0
	for len(out) > width && i < len(out)-1 {
		a := strings.TrimSpace(out[i])
		b := strings.TrimSpace(out[i+1])
		if thousandsHead.MatchString(a) && thousandsTail.MatchString(b) {
			out[i] = a + "," + b
			out = append(out[:i+1], out[i+2:]...)
			fixes.inc(FixNormalizedNumbers)
			continue
		}
		i++
	}

	if len(out) > width {
		if width == 0 {
			return []string{}
		}
		tail := strings.Join(out[width-1:], string(delim))
		out = append(out[:width-1], tail)
	}
	return out
}
