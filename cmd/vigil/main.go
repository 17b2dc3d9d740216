// cmd/vigil/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/api"
	"github.com/FairForge/vigil/internal/config"
	"github.com/FairForge/vigil/internal/monitor"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg := config.DefaultConfig()
	if path := os.Getenv("VIGIL_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			logger.Fatal("load config", zap.String("path", path), zap.Error(err))
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if len(cfg.Endpoints) == 0 {
		logger.Warn("no endpoints configured; health checks will be idle")
	}

	mon, err := monitor.New(cfg, logger)
	if err != nil {
		logger.Fatal("create monitor", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon.Start(ctx)
	server := api.NewServer(cfg, logger, mon)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		mon.Stop()
		cancel()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
