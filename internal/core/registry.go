package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Dialect describes a CRM export format: the headers that identify it and
// the table renaming its columns to canonical field names.
type Dialect struct {
	Name       string            `json:"name"`
	Label      string            `json:"label"`
	Priority   int               `json:"priority"` // Lower is tried first
	Indicators []string          `json:"indicators"`
	Fields     map[string]string `json:"fields"` // lowercase header -> canonical field
}

var (
	dialects   = make(map[string]Dialect)
	dialectsMu sync.RWMutex
)

// RegisterDialect adds a dialect to the registry.
// Panics if a dialect with the same name is already registered.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()

	if _, exists := dialects[d.Name]; exists {
		panic(fmt.Sprintf("dialect already registered: %s", d.Name))
	}

	// Lookups are case-insensitive on both sides
	fields := make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}
	d.Fields = fields
	for i, ind := range d.Indicators {
		d.Indicators[i] = strings.ToLower(strings.TrimSpace(ind))
	}

	dialects[d.Name] = d
}

// GetDialect returns a dialect by name.
func GetDialect(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()

	d, ok := dialects[name]
	return d, ok
}

// Dialects returns every registered dialect in detection order.
func Dialects() []Dialect {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()

	result := make([]Dialect, 0, len(dialects))
	for _, d := range dialects {
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// DialectCount returns the number of registered dialects.
func DialectCount() int {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	return len(dialects)
}
