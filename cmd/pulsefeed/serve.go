package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the Pulsefeed dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the Pulsefeed dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Start polling all configured feeds
  - Serve the dashboard UI, JSON API and metrics on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pulsefeed serve -c config.yaml
  pulsefeed serve --config /etc/pulsefeed/config.yaml --log-format text`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"feeds", len(cfg.Feeds),
		"grids", len(cfg.Grids),
	)

	sources, err := config.BuildSources(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}

	if len(sources) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	opts := append(config.HubOptions(cfg),
		pulsefeed.WithSources(sources...),
		pulsefeed.WithLogger(logger),
	)

	hub, err := pulsefeed.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create hub: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
