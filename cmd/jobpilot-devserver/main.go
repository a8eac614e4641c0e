// Command jobpilot-devserver runs the reference tracker backend the jobpilot
// CLI talks to: bearer-token auth, per-user jobs and their interviews, all in
// one SQLite file.
//
// WHY A SEPARATE BINARY?
// The CLI only needs some backend that speaks the /auth, /jobs and
// /interviews contract. Shipping one next to it makes local use and the
// end-to-end tests self-contained. Each executable gets its own cmd/ dir.
//
//	JWT_SECRET=$(openssl rand -hex 32) jobpilot-devserver
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sakif/jobpilot/internal/config"
	"github.com/sakif/jobpilot/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// A .env file is optional. Variables already in the environment win.
	_ = godotenv.Load()

	cfg, err := config.LoadDevServer()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`. Skipped for the in-memory database.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:       cfg.Port,
		DBPath:     cfg.DBPath,
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		AuthPrefix: cfg.AuthPrefix,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Run blocks until SIGINT or SIGTERM cancels ctx, then drains in-flight
	// requests.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = srv.Run(ctx)
	stop()
	if err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
