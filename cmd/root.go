// Package cmd defines the liftwise command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liftwise/liftwise/internal/app"
	"github.com/liftwise/liftwise/internal/config"
	"github.com/liftwise/liftwise/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "liftwise",
	Short: "Liftwise - AI fitness coach for your terminal",
	Long: `Liftwise is an AI fitness coach. It answers training and health
questions grounded in your knowledge base, reads and writes your workout
log through the Hevy app, and builds weekly training plans interactively.

Running liftwise with no arguments starts the interactive console.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds the process logger from the verbose flag.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and initializes the application.
// The returned cleanup must be deferred by the caller.
func setupApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing application: %w", err)
	}

	cleanup := func() {
		if closeErr := a.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", closeErr)
		}
	}
	return a, cleanup, nil
}
