// Package coach drives response generation: a strictly ordered fallback
// machine that tries the tool agent, then the primary model with and
// without retrieval context, then the fallback model, and finally a
// fixed apology. Respond never errors; the caller always gets
// displayable text.
package coach

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/liftwise/liftwise/internal/knowledge"
	"github.com/liftwise/liftwise/internal/log"
	"github.com/liftwise/liftwise/internal/provider"
)

// ContextBuilder assembles the retrieval brief for a question.
type ContextBuilder interface {
	Build(ctx context.Context, userQuery string, seeds ...string) knowledge.Bundle
}

// ToolAgent answers an instruction with autonomous tool calls.
type ToolAgent interface {
	Run(ctx context.Context, instruction string) (string, error)
}

// Config carries the coach's dependencies. Primary and Logger are
// required; everything else degrades gracefully when absent.
type Config struct {
	Primary  provider.Handle
	Fallback provider.Handle // nil: FallbackModel tier is skipped
	Builder  ContextBuilder  // nil: context is always empty
	Agent    ToolAgent       // nil: Agent tier is skipped
	Logger   log.Logger

	MaxHistoryTurns int           // <=0: 6
	TierTimeout     time.Duration // <=0: 60s
	Retry           RetryConfig
	CircuitBreaker  CircuitBreakerConfig
	RateLimiter     *rate.Limiter // nil: 2 req/s, burst 4
}

const defaultTierTimeout = 60 * time.Second

// Coach is safe for concurrent use; all fields are read-only after
// construction except the per-handle breakers, which lock internally.
type Coach struct {
	primary  provider.Handle
	fallback provider.Handle
	builder  ContextBuilder
	agent    ToolAgent
	logger   log.Logger

	maxHistoryTurns int
	tierTimeout     time.Duration
	retry           RetryConfig
	limiter         *rate.Limiter

	breakerCfg CircuitBreakerConfig
	breakerMu  sync.Mutex
	breakers   map[string]*CircuitBreaker
}

// New creates a Coach.
func New(cfg Config) (*Coach, error) {
	if cfg.Primary == nil {
		return nil, errors.New("primary model handle is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = defaultMaxHistoryTurns
	}
	if cfg.TierTimeout <= 0 {
		cfg.TierTimeout = defaultTierTimeout
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = rate.NewLimiter(2, 4)
	}

	return &Coach{
		primary:         cfg.Primary,
		fallback:        cfg.Fallback,
		builder:         cfg.Builder,
		agent:           cfg.Agent,
		logger:          cfg.Logger,
		maxHistoryTurns: cfg.MaxHistoryTurns,
		tierTimeout:     cfg.TierTimeout,
		retry:           cfg.Retry,
		limiter:         cfg.RateLimiter,
		breakerCfg:      cfg.CircuitBreaker,
		breakers:        make(map[string]*CircuitBreaker),
	}, nil
}

// Respond answers a user message. The relevance gate decides whether
// retrieval runs at all; the bundle is built once and shared by every
// tier. Always returns displayable text.
func (c *Coach) Respond(ctx context.Context, input string, history []Turn) string {
	bundle := knowledge.Bundle{IsEmpty: true}
	if c.builder != nil && knowledge.ShouldRetrieve(input, historyTexts(history)) {
		bundle = c.builder.Build(ctx, input)
	}
	historyBlock := renderHistory(history, c.maxHistoryTurns)
	return c.execute(ctx, c.tiers(bundle, historyBlock, input))
}

// RespondSeeded is Respond with caller-supplied retrieval seed queries
// and no relevance gate; used by flows that know their domain, like
// weekly-plan generation.
func (c *Coach) RespondSeeded(ctx context.Context, input string, history []Turn, seeds ...string) string {
	bundle := knowledge.Bundle{IsEmpty: true}
	if c.builder != nil {
		bundle = c.builder.Build(ctx, input, seeds...)
	}
	historyBlock := renderHistory(history, c.maxHistoryTurns)
	return c.execute(ctx, c.tiers(bundle, historyBlock, input))
}

// RespondDirect answers without retrieval or the agent, for
// narrowly-scoped prompts where coaching context would be off-topic.
func (c *Coach) RespondDirect(ctx context.Context, input string, history []Turn) string {
	historyBlock := renderHistory(history, c.maxHistoryTurns)
	return c.execute(ctx, c.directTiers(historyBlock, input))
}

// Summarize condenses text through the primary handle. It exists so
// the context builder can reuse the coach's retry and breaker path.
func (c *Coach) Summarize(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, c.primary, prompt)
}

// PrimaryModel returns the effective primary model name.
func (c *Coach) PrimaryModel() string { return c.primary.Name() }

// FallbackModel returns the fallback model name, or "" without one.
func (c *Coach) FallbackModel() string {
	if c.fallback == nil {
		return ""
	}
	return c.fallback.Name()
}

// AgentAvailable reports whether the tool agent tier is configured.
func (c *Coach) AgentAvailable() bool { return c.agent != nil }

// RetrieverAvailable reports whether retrieval context is configured.
func (c *Coach) RetrieverAvailable() bool { return c.builder != nil }

// generate calls a handle through its circuit breaker and the retry
// path. One breaker per handle name, created on first use.
func (c *Coach) generate(ctx context.Context, h provider.Handle, prompt string) (string, error) {
	cb := c.breaker(h.Name())
	if err := cb.Allow(); err != nil {
		return "", err
	}

	text, err := c.withRetry(ctx, func(ctx context.Context) (string, error) {
		return h.Generate(ctx, prompt)
	})
	if err != nil {
		cb.Failure()
		return "", err
	}
	cb.Success()
	return text, nil
}

func (c *Coach) breaker(name string) *CircuitBreaker {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	cb, ok := c.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(c.breakerCfg)
		c.breakers[name] = cb
	}
	return cb
}
