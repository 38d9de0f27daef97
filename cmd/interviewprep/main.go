package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"interviewprep/internal/cli"
	"interviewprep/internal/config"
	"interviewprep/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	vault, err := config.ApplyVaultSecrets(cfg, logger)
	if err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}

	logger.Info("Starting interviewprep",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"pdf_backend", cfg.Extract.PDFBackend)

	if err := cli.Execute(ctx, cfg, vault, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
