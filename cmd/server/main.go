// Package main is the entry point for the snippet-oracle server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (config file, env vars)
//  2. Create the logger
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. This
// project has two: cmd/server (the HTTP API) and cmd/snippetctl (the CLI).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/snippet-oracle/internal/config"
	"github.com/sakif/snippet-oracle/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// The config file is optional: -config wins, then CONFIG_FILE. Without
	// either, defaults plus environment variables (PORT, DB_PATH, JWT_SECRET,
	// SEARCH_MODE, ...) are enough.
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet with the right level; use the default one.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// slog.NewTextHandler outputs human-readable key=value logs.
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))
	slog.SetDefault(logger)

	if cfg.JWT.Secret == "" {
		logger.Error("JWT_SECRET must be set; generate one with: openssl rand -hex 32")
		os.Exit(1)
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
