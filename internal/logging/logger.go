// Package logging configures log/slog for the server and the CLI.
//
// Loggers taken from a request context carry chi's request id, so the
// engine's run and chunk entries line up with the request that started them.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the server's default logger on stdout.
//
// level is one of debug, info, warn or error (default info); format is
// "json" or "text" (default text).
func Setup(level, format string) {
	slog.SetDefault(NewLogger(level, format, os.Stdout))
}

// NewLogger builds a logger writing to w. cleanctl points it at stderr so
// cleaned output and reports on stdout stay parseable.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger, tagged with request_id when ctx
// comes from a request routed through chi's RequestID middleware.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns a context logger carrying args on every entry. The
// engine builds one per run:
//
//	logger := logging.WithFields(ctx, "run_id", runID, "file", filename)
//	logger.Debug("clean started", "file_type", ft)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
