package history

import (
	"strconv"
	"strings"
)

// whereBuilder assembles a parameterized WHERE clause. Placeholders are
// rendered by the store dialect: $1, $2 for Postgres and ? for SQLite.
type whereBuilder struct {
	conditions  []string
	args        []any
	argIndex    int
	placeholder func(int) string
}

func newWhereBuilder(placeholder func(int) string) *whereBuilder {
	return &whereBuilder{argIndex: 1, placeholder: placeholder}
}

func dollarPlaceholder(i int) string { return "$" + strconv.Itoa(i) }

func questionPlaceholder(int) string { return "?" }

// Add appends "column = value". Empty values are skipped.
func (wb *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.AddCondition(column, "=", value)
}

// AddCondition appends "column op value".
func (wb *whereBuilder) AddCondition(column, op string, value any) {
	wb.conditions = append(wb.conditions, column+" "+op+" "+wb.placeholder(wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// NextArgIndex returns the index of the next placeholder.
func (wb *whereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Placeholder renders the next placeholder and advances the index.
func (wb *whereBuilder) Placeholder() string {
	p := wb.placeholder(wb.argIndex)
	wb.argIndex++
	return p
}

// Build returns the clause with a leading " WHERE", or "" when empty.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
