package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/actions"
	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/mcp"
	"github.com/brandon/mailflow/internal/state"
	"github.com/brandon/mailflow/internal/trigger"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailflow version %s\n", version)
		os.Exit(0)
	}

	// Set up logging. Logs go to stderr so stdout stays a clean
	// JSON-RPC channel.
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting mailflow server")

	// Initialize the state store (watermarks + attachment binaries)
	db, err := state.Open(cfg.StatePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open state store")
	}
	defer db.Close()

	store := state.NewStore(db, logger)

	// Session factory for the configured account
	dialer := email.NewDialer(&cfg.Account, logger)

	// Action registry + host server
	registry := actions.NewRegistry(dialer, store, logger)
	server := mcp.NewServer(registry, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Change-detection trigger
	var engine *trigger.Engine
	if cfg.Trigger.Enabled {
		engine = trigger.NewEngine(&cfg.Trigger, dialer, store, store, logger, server.EmitEvent)
		if err := engine.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start trigger")
		}
	}

	// Run server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
		cancel()
	}

	if engine != nil {
		engine.Stop()
	}

	logger.Info("Shutting down mailflow server")
}
