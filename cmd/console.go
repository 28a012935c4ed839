package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/liftwise/liftwise/internal/console"
)

// runConsole starts the interactive coaching session.
func runConsole(ctx context.Context) error {
	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := console.Config{
		Coach:  a.Coach,
		Cache:  a.Cache,
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: a.Logger,
	}
	if a.Planner != nil {
		cfg.Planner = a.Planner
	}

	c, err := console.New(cfg)
	if err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	return c.Run(ctx)
}
