// Command weekcheck-mcp serves the persisted weekly tracking state to MCP
// clients over stdio. It only reads snapshots and can run next to weekcheck.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/conf"
	"github.com/devricklin/weekcheck/internal/data"
	"github.com/devricklin/weekcheck/internal/logging"
	"github.com/devricklin/weekcheck/internal/mcp"
)

const version = "1.0.0"

func main() {
	// stdout carries the protocol; all diagnostics go to stderr
	log.SetOutput(os.Stderr)
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	loc, err := cfg.Tracking.Location()
	if err != nil {
		log.Fatalf("Invalid REFERENCE_TIMEZONE: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	store, err := data.NewSnapshotStore(cfg.Store.Backend, cfg.Store.DataDir)
	if err != nil {
		logger.Fatal("open snapshot store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(store, loc, cfg.TwoChat.BotNumber, version)
	logger.Info("mcp server started", zap.String("store", cfg.Store.Backend))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server stopped", zap.Error(err))
	}
}
