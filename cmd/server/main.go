package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dataclean/internal/config"
	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
	"github.com/JonMunkholm/dataclean/internal/logging"
	"github.com/JonMunkholm/dataclean/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"chunk_size", cfg.Clean.ChunkSize,
		"history_enabled", cfg.History.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	// Cleaning defaults: environment, then the optional profile
	defaults := cfg.Clean.Options()
	if cfg.Clean.ProfilePath != "" {
		profile, err := config.LoadProfile(cfg.Clean.ProfilePath)
		if err != nil {
			slog.Error("failed to load cleaning profile", "path", cfg.Clean.ProfilePath, "error", err)
			os.Exit(1)
		}
		defaults = profile.Options(defaults)
		slog.Info("cleaning profile loaded", "name", profile.Name, "path", cfg.Clean.ProfilePath)
	}

	// Connect run history
	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History.DSN, history.Options{MaxConns: cfg.History.MaxConns})
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("crm dialects registered", "count", core.DialectCount())

	server := web.NewServer(core.NewEngine(), store, cfg, defaults)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Waits for active runs before closing connections
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
