// Package app wires the application together.
//
// Setup initializes everything in dependency order: telemetry, database,
// Genkit with the configured AI provider, model resolution, the knowledge
// store, the Hevy tool agent, the coach, and the weekly planner. Optional
// pieces (tool agent, retrieval, cache) degrade to nil instead of failing
// startup; the coach skips the tiers they would have served.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/config"
	"github.com/liftwise/liftwise/internal/hevy"
	"github.com/liftwise/liftwise/internal/knowledge"
	"github.com/liftwise/liftwise/internal/log"
	"github.com/liftwise/liftwise/internal/planner"
)

// App is the application container. Fields are read-only after Setup.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Store   *knowledge.Store
	Indexer *knowledge.Indexer
	Hevy    *hevy.Agent // nil when the Hevy MCP server is not configured
	Coach   *coach.Coach
	Planner *planner.Planner // nil without a tool agent
	Cache   *cache.Cache     // nil when the response cache is disabled

	otelShutdown func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Hevy != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.Hevy.Close(ctx); err != nil {
			a.Logger.Warn("closing hevy agent", "error", err)
		}
		cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}

	if a.otelShutdown != nil {
		a.otelShutdown()
	}

	return nil
}
