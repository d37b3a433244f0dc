// Package config provides centralized configuration management for the
// cleaning service. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Clean    CleanConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// UploadConfig holds upload and run admission settings.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one file; accepts "100MiB" or plain bytes
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"100MiB" unit:"bytes"`

	// MaxBatchFiles is the maximum number of files in one request (default: 20)
	MaxBatchFiles int `env:"UPLOAD_MAX_BATCH_FILES" default:"20"`

	// MaxConcurrent is the maximum number of cleaning runs at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single cleaning run (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// CleanConfig holds the default cleaning options.
type CleanConfig struct {
	// Delimiter is the CSV field separator, one character (default: ",")
	Delimiter string `env:"CLEAN_DELIMITER" default:","`

	// ChunkSize is the data row count above which input is cleaned in chunks (default: 10000)
	ChunkSize int `env:"CLEAN_CHUNK_SIZE" default:"10000"`

	// ExportFormats lists the formats built by default (default: all)
	ExportFormats []string `env:"CLEAN_EXPORT_FORMATS" default:"csv,json,excel,columns"`

	// ExcelRows caps the full spreadsheet export (default: 50000)
	ExcelRows int `env:"CLEAN_EXCEL_MAX_ROWS" default:"50000"`

	// JSONRows caps the full JSON export (default: 100000)
	JSONRows int `env:"CLEAN_JSON_MAX_ROWS" default:"100000"`

	// ColumnExcelRows caps per-column spreadsheets (default: 10000)
	ColumnExcelRows int `env:"CLEAN_COLUMN_EXCEL_MAX_ROWS" default:"10000"`

	// ColumnJSONRows caps per-column JSON files (default: 25000)
	ColumnJSONRows int `env:"CLEAN_COLUMN_JSON_MAX_ROWS" default:"25000"`

	// ProfilePath is an optional YAML cleaning profile
	ProfilePath string `env:"CLEAN_PROFILE"`
}

// HistoryConfig holds run history store settings.
type HistoryConfig struct {
	// DSN selects the store: a postgres:// URL, a SQLite file path, or empty to disable.
	DSN string `env:"HISTORY_DSN" envAlt:"DATABASE_URL"`

	// MaxConns is the maximum number of pooled Postgres connections (default: 10)
	MaxConns int `env:"HISTORY_MAX_CONNS" default:"10"`

	// ListLimit is the default page size of history listings (default: 50)
	ListLimit int `env:"HISTORY_LIST_LIMIT" default:"50"`
}

// Enabled reports whether run history is configured.
func (h HistoryConfig) Enabled() bool {
	return h.DSN != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CleanLimit is requests per minute for the cleaning endpoint (default: 20)
	CleanLimit int `env:"RATE_LIMIT_CLEAN" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey turns on X-API-Key authentication for /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Options converts the cleaning defaults into engine options.
func (c CleanConfig) Options() core.Options {
	opts := core.DefaultOptions()
	if r := []rune(c.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	if c.ChunkSize > 0 {
		opts.ChunkSize = c.ChunkSize
	}
	opts.ExportFormats = core.ParseFormats(strings.Join(c.ExportFormats, ","))
	opts.Limits = core.ExportLimits{
		ExcelRows:       c.ExcelRows,
		JSONRows:        c.JSONRows,
		ColumnExcelRows: c.ColumnExcelRows,
		ColumnJSONRows:  c.ColumnJSONRows,
	}
	return opts
}
