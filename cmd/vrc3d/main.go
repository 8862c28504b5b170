// Package main is the entry point for the VRC3D viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/config"
	"github.com/Faultbox/vrc3d/internal/game"
	"github.com/Faultbox/vrc3d/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
	logger.Sync()
}

func run(cfg *config.Config) error {
	logger.Info("=== VRC3D ===",
		zap.String("host", cfg.Network.Host),
		zap.Bool("offline", cfg.Network.Offline),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create and run the viewer
	g, err := game.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create viewer: %w", err)
	}
	defer g.Close()

	return g.Run(ctx)
}
