package core

// normalize.go repairs individual cell values.
//
// A cell goes through, in order:
//   - null → "" (empties_to_blank)
//   - surrounding whitespace trimmed (trimmed_cells)
//   - thousands-grouped numbers "1,234.50" → "1234.50" (normalized_numbers)
//   - recognised date shapes rewritten as ISO YYYY-MM-DD (normalized_dates)
//
// The pattern tables below are package-level and never written after init,
// so concurrent runs share them freely.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// nullCell marks a cell whose source value was null (JSON null).
// Parsers emit it; NormalizeCell turns it into "".
const nullCell = "\x00null\x00"

var thousandsNumber = regexp.MustCompile(`^-?[0-9]{1,3}(,[0-9]{3})+(\.[0-9]+)?$`)

// datePatterns are the value shapes treated as dates. A value matching one
// of them is either rewritten to ISO form or left exactly as it was.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`),                           // 2025-12-29
	regexp.MustCompile(`^[0-9]{1,2}[/-][0-9]{1,2}[/-][0-9]{2,4}$`),               // 12/29/2025, 12-29-25
	regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}`), // 2025-12-29T10:30:00.000Z
}

var (
	isoDateRegex = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	usDateRegex  = regexp.MustCompile(`^([0-9]{1,2})[/-]([0-9]{1,2})[/-]([0-9]{2,4})$`)
)

const isoLayout = "2006-01-02"

// NormalizeCell returns the cleaned form of one cell and records what it
// changed in fixes.
func NormalizeCell(value string, fixes Fixes) string {
	if value == nullCell {
		fixes.inc(FixEmptiesToBlank)
		return ""
	}

	v := strings.TrimSpace(value)
	if v != value {
		fixes.inc(FixTrimmedCells)
	}
	if v == "" {
		return ""
	}

	if thousandsNumber.MatchString(v) {
		fixes.inc(FixNormalizedNumbers)
		return strings.ReplaceAll(v, ",", "")
	}

	for _, pat := range datePatterns {
		if !pat.MatchString(v) {
			continue
		}
		if iso, ok := ToISODate(v); ok && iso != v {
			fixes.inc(FixNormalizedDates)
			return iso
		}
		return v
	}

	return v
}

// ToISODate parses the supported date shapes and returns the calendar date
// as YYYY-MM-DD. Two-digit years are read as 20YY. Returns false for values
// that are not valid calendar dates.
func ToISODate(value string) (string, bool) {
	value = strings.TrimSpace(value)

	if isoDateRegex.MatchString(value) {
		if t, ok := parseISODate(value); ok {
			return t.Format(isoLayout), true
		}
	}

	if m := usDateRegex.FindStringSubmatch(value); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		t, ok := calendarDate(year, month, day)
		if !ok {
			return "", false
		}
		return t.Format(isoLayout), true
	}

	// Timestamp: keep the date part of 2025-12-29T10:30:00.000Z
	if datePart, _, found := strings.Cut(value, "T"); found && isoDateRegex.MatchString(datePart) {
		if t, ok := parseISODate(datePart); ok {
			return t.Format(isoLayout), true
		}
	}

	return "", false
}

func parseISODate(s string) (time.Time, bool) {
	t, err := time.Parse(isoLayout, s)
	if err != nil || t.Year() < 1 {
		return time.Time{}, false
	}
	return t, true
}

// calendarDate builds a date and rejects anything time.Date would roll over
// (month 13, February 30, ...).
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
