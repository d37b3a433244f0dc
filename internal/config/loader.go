package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/dataclean/internal/core"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct fills the env-tagged fields of v and of its nested sections.
// Every missing or malformed variable is reported, not only the first.
//
// Tags: env names the variable, envAlt a fallback variable, default the
// value used when both are unset, required="true" rejects an unset value
// and unit="bytes" accepts sizes such as "100MiB".
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}

		value, source := lookupEnv(name, field.Tag.Get("envAlt"))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value, source = field.Tag.Get("default"), name+" default"
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value, field.Tag.Get("unit")); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", source, value, err))
		}
	}

	return errors.Join(errs...)
}

// lookupEnv returns the first non-empty value of name or alt and the
// variable it came from.
func lookupEnv(name, alt string) (value, source string) {
	if v := os.Getenv(name); v != "" {
		return v, name
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, alt
		}
	}
	return "", ""
}

func setField(field reflect.Value, value, unit string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case unit == "bytes":
		n, err := humanize.ParseBytes(value)
		if err != nil {
			return fmt.Errorf("invalid size: %w", err)
		}
		if n > math.MaxInt64 || field.OverflowInt(int64(n)) {
			return fmt.Errorf("size %s out of range", humanize.IBytes(n))
		}
		field.SetInt(int64(n))

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxBatchFiles <= 0 {
		errs = append(errs, "UPLOAD_MAX_BATCH_FILES must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	// Cleaning defaults
	if utf8.RuneCountInString(c.Clean.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("CLEAN_DELIMITER (%q) must be a single character", c.Clean.Delimiter))
	}
	if c.Clean.ChunkSize <= 0 {
		errs = append(errs, "CLEAN_CHUNK_SIZE must be positive")
	}
	for _, f := range c.Clean.ExportFormats {
		if len(core.ParseFormats(f)) == 0 {
			errs = append(errs, fmt.Sprintf("CLEAN_EXPORT_FORMATS contains unknown format %q", f))
		}
	}
	if c.Clean.ExcelRows <= 0 || c.Clean.JSONRows <= 0 || c.Clean.ColumnExcelRows <= 0 || c.Clean.ColumnJSONRows <= 0 {
		errs = append(errs, "CLEAN_*_MAX_ROWS limits must be positive")
	}

	// History validation
	if c.History.Enabled() && c.History.MaxConns <= 0 {
		errs = append(errs, "HISTORY_MAX_CONNS must be positive")
	}
	if c.History.ListLimit <= 0 {
		errs = append(errs, "HISTORY_LIST_LIMIT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.CleanLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_CLEAN must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The history DSN and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %s, MaxConcurrent: %d, MaxBatchFiles: %d}, ",
		humanize.IBytes(uint64(max(c.Upload.MaxFileSize, 0))), c.Upload.MaxConcurrent, c.Upload.MaxBatchFiles))
	b.WriteString(fmt.Sprintf("Clean: {ChunkSize: %d, Formats: %v, Profile: %q}, ",
		c.Clean.ChunkSize, c.Clean.ExportFormats, c.Clean.ProfilePath))
	if c.History.Enabled() {
		b.WriteString("History: {DSN: [MASKED]}, ")
	} else {
		b.WriteString("History: {disabled}, ")
	}
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
