package cmd

import (
	"github.com/spf13/cobra"

	"github.com/liftwise/liftwise/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the REST API: coaching responses, weekly plan generation,
health day-series analysis, and runtime stats. Shuts down gracefully on
SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := api.Config{
		Coach:       a.Coach,
		Cache:       a.Cache,
		Pool:        a.Pool,
		Logger:      a.Logger,
		CORSOrigins: a.Config.CORSOrigins,
		TrustProxy:  a.Config.TrustProxy,
	}
	if a.Planner != nil {
		cfg.Planner = a.Planner
	}

	srv, err := api.NewServer(cfg)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = a.Config.ServeAddr
	}
	return srv.Run(ctx, addr)
}
