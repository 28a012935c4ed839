package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/liftwise/liftwise/db"
	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/config"
	"github.com/liftwise/liftwise/internal/hevy"
	"github.com/liftwise/liftwise/internal/knowledge"
	"github.com/liftwise/liftwise/internal/log"
	"github.com/liftwise/liftwise/internal/planner"
	"github.com/liftwise/liftwise/internal/provider"
)

const (
	// closeTimeout bounds per-resource shutdown during Close.
	closeTimeout = 5 * time.Second

	// pingTimeout bounds the startup database ping.
	pingTimeout = 5 * time.Second
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelShutdown = provideOtelShutdown(ctx, cfg.Telemetry, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, ollamaPlugin, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	res, err := provideResolution(ctx, g, ollamaPlugin, cfg, logger)
	if err != nil {
		return nil, err
	}

	embedder := ollama.Embedder(g, cfg.OllamaHost)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Store = knowledge.NewStore(pool, embedder, cfg.RetrievalTopK, logger)
	a.Indexer = knowledge.NewIndexer(a.Store, logger)
	builder := knowledge.NewBuilder(a.Store, res.Primary, cfg.MaxQueries, cfg.MaxChunks, logger)

	a.Hevy = provideHevyAgent(ctx, g, res, cfg, logger)

	a.Coach, err = provideCoach(res, builder, a.Hevy, cfg, logger)
	if err != nil {
		return nil, err
	}

	if a.Hevy != nil {
		a.Planner, err = planner.New(a.Coach, planner.NewStore(pool, logger), cfg.PlanMaxRevisions, logger)
		if err != nil {
			return nil, err
		}
	}

	if cfg.CacheEnabled {
		rc, err := cache.New(cfg.CacheDir, logger)
		if err != nil {
			logger.Warn("response cache disabled", "error", err)
		} else {
			a.Cache = rc
		}
	}

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit
// initialization, so the span processor is registered on Genkit's
// TracerProvider before any flow runs. The collector endpoint handles
// authentication and forwarding; export failures only cost traces.
func provideOtelShutdown(ctx context.Context, tc config.TelemetryConfig, logger log.Logger) func() {
	endpoint := tc.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this runs exactly
	// once during startup, before goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Debug("trace export enabled",
		"endpoint", endpoint,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations, then creates and pings the pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Ollama plugin plus any hosted
// provider plugin whose API key is present. The Ollama plugin is always
// registered: the local fallback family depends on it, and it serves the
// embedder regardless of the chat provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, *ollama.Ollama, error) {
	ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
	plugins := []api.Plugin{ollamaPlugin}

	if os.Getenv("OPENAI_API_KEY") != "" {
		plugins = append(plugins, &openai.OpenAI{})
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		plugins = append(plugins, &googlegenai.GoogleAI{})
	}

	g := genkit.Init(ctx, genkit.WithPlugins(plugins...))
	if g == nil {
		return nil, nil, errors.New("initializing genkit")
	}

	// Ollama requires explicit embedder registration (no auto-discovery).
	ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

	logger.Info("initialized genkit",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
	)
	return g, ollamaPlugin, nil
}

// provideResolution walks the candidate list for the configured model and
// returns the primary and fallback handles.
func provideResolution(ctx context.Context, g *genkit.Genkit, ollamaPlugin *ollama.Ollama, cfg *config.Config, logger log.Logger) (*provider.Resolution, error) {
	factory := provider.NewGenkitFactory(g, ollamaPlugin, cfg)
	resolver := provider.NewResolver(
		factory.Handle,
		provider.FallbackModels{
			Local:  cfg.FallbackLocalModel,
			OpenAI: cfg.FallbackOpenAIModel,
			Gemini: cfg.FallbackGeminiModel,
		},
		provider.CredentialsFromEnv(cfg.OllamaHost != ""),
		cfg.LocalModelPrefixes,
		logger,
	)
	return resolver.Resolve(ctx, cfg.ModelName)
}

// provideHevyAgent starts the Hevy MCP agent. Failures degrade to nil:
// the coach then skips the agent tier and the planner is not offered.
func provideHevyAgent(ctx context.Context, g *genkit.Genkit, res *provider.Resolution, cfg *config.Config, logger log.Logger) *hevy.Agent {
	if !cfg.Hevy.Enabled() {
		logger.Debug("hevy agent not configured")
		return nil
	}

	agent, err := hevy.New(ctx, hevy.Config{
		Genkit:        g,
		ModelName:     provider.QualifiedName(res.Primary),
		ClientOptions: cfg.Hevy.ClientOptions(),
		MaxTurns:      cfg.MaxTurns,
		Logger:        logger,
	})
	if err != nil {
		logger.Warn("hevy agent unavailable, continuing without workout tools", "error", err)
		return nil
	}
	return agent
}

// provideCoach assembles the tiered response coach. The nil checks keep
// typed nils out of the interface fields.
func provideCoach(res *provider.Resolution, builder *knowledge.Builder, agent *hevy.Agent, cfg *config.Config, logger log.Logger) (*coach.Coach, error) {
	coachCfg := coach.Config{
		Primary:         res.Primary,
		Fallback:        res.Fallback,
		Logger:          logger,
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	}
	if builder != nil {
		coachCfg.Builder = builder
	}
	if agent != nil {
		coachCfg.Agent = agent
	}
	return coach.New(coachCfg)
}
