// Package history records cleaning run reports.
//
// Two backends are provided: Postgres through a pgx connection pool and an
// embedded SQLite file. Open selects the backend from the DSN.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/dataclean/internal/core"
)

const (
	// DefaultListLimit is the page size when ListOptions.Limit is unset.
	DefaultListLimit = 50

	// MaxListLimit caps a single listing.
	MaxListLimit = 500
)

var (
	// ErrNotFound is returned by Get for an unknown run id.
	ErrNotFound = errors.New("run not found")

	// ErrDisabled is returned when no history store is configured.
	ErrDisabled = errors.New("history disabled")
)

// ListOptions filters a history listing. Zero values match everything.
type ListOptions struct {
	FileType core.FileType
	CRM      string
	Since    time.Time
	Limit    int
	Offset   int
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	}
	return o.Limit
}

func (o ListOptions) offset() int {
	if o.Offset < 0 {
		return 0
	}
	return o.Offset
}

// Store persists run reports.
type Store interface {
	// Save records a finished run. Saving the same run id twice replaces it.
	Save(ctx context.Context, r core.Report) error

	// Recent lists runs newest first.
	Recent(ctx context.Context, opts ListOptions) ([]core.Report, error)

	// Get returns one run or ErrNotFound.
	Get(ctx context.Context, runID string) (core.Report, error)

	Close() error
}

// Options configures Open.
type Options struct {
	MaxConns int
}

// Open connects to the store named by dsn. postgres:// and postgresql://
// URLs use Postgres; anything else is a SQLite file path. An empty dsn
// returns a store that records nothing.
func Open(ctx context.Context, dsn string, opts Options) (Store, error) {
	switch {
	case dsn == "":
		return Disabled{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn, opts)
	default:
		return openSQLite(ctx, dsn)
	}
}

// Disabled is the store used when history is not configured.
type Disabled struct{}

func (Disabled) Save(context.Context, core.Report) error { return nil }

func (Disabled) Recent(context.Context, ListOptions) ([]core.Report, error) {
	return nil, ErrDisabled
}

func (Disabled) Get(context.Context, string) (core.Report, error) {
	return core.Report{}, ErrDisabled
}

func (Disabled) Close() error { return nil }
