package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/droneops/loglift/pkg/config"
	"github.com/droneops/loglift/pkg/upload"
	"github.com/droneops/loglift/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web upload form server",
	Long:  `Serve a minimal browser form for uploading flight logs to remote storage.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.ValidateWeb(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Storage.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Fail fast on storage misconfiguration before accepting uploads.
	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("storage preflight: %w", err)
	}

	srv := web.NewServer(log, cfg.Web, cfg.Storage.S3.Prefix, uploader)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting web server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down web server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping web server: %w", err)
	}

	return nil
}
