package coach

import (
	"context"

	"github.com/liftwise/liftwise/internal/knowledge"
)

// Tier is one ordered stage of the response fallback machine.
type Tier int

const (
	TierAgent Tier = iota
	TierDirectWithContext
	TierDirectNoContext
	TierFallbackModel
	TierUnavailable
)

func (t Tier) String() string {
	switch t {
	case TierAgent:
		return "agent"
	case TierDirectWithContext:
		return "direct_with_context"
	case TierDirectNoContext:
		return "direct_no_context"
	case TierFallbackModel:
		return "fallback_model"
	case TierUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// UnavailableMessage is the only text ever surfaced when every tier
// fails. No provider error detail leaks past this point.
const UnavailableMessage = "Sorry, I'm temporarily unavailable due to rate limits. Please try again shortly."

// tier is one stage: ready gates whether it applies at all, run
// produces the response or an error that advances the machine.
type tier struct {
	id    Tier
	ready func() bool
	run   func(ctx context.Context) (string, error)
}

// execute walks the tiers strictly in order, returning the first
// success. Failures are logged with tier and cause, never returned;
// the list always ends with a tier that cannot fail.
func (c *Coach) execute(ctx context.Context, tiers []tier) string {
	for _, t := range tiers {
		if t.ready != nil && !t.ready() {
			continue
		}

		tctx, cancel := context.WithTimeout(ctx, c.tierTimeout)
		text, err := t.run(tctx)
		cancel()

		if err != nil {
			c.logger.Warn("response tier failed", "tier", t.id.String(), "error", err)
			continue
		}
		c.logger.Debug("response tier succeeded", "tier", t.id.String())
		return text
	}
	// The Unavailable tier is unconditional, so this is unreachable
	// with a well-formed tier list.
	return UnavailableMessage
}

// tiers assembles the full machine for one request. The bundle is
// built once by the caller and shared by every tier that wants it.
func (c *Coach) tiers(bundle knowledge.Bundle, historyBlock, input string) []tier {
	directPrompt := func(withContext bool) string {
		b := bundle
		if !withContext {
			b = knowledge.Bundle{IsEmpty: true}
		}
		return buildPrompt(b, historyBlock, input)
	}

	return []tier{
		{
			id:    TierAgent,
			ready: func() bool { return c.agent != nil },
			run: func(ctx context.Context) (string, error) {
				return c.agent.Run(ctx, agentInstruction(bundle, historyBlock, input))
			},
		},
		{
			id:    TierDirectWithContext,
			ready: func() bool { return !bundle.IsEmpty },
			run: func(ctx context.Context) (string, error) {
				return c.generate(ctx, c.primary, directPrompt(true))
			},
		},
		{
			id: TierDirectNoContext,
			run: func(ctx context.Context) (string, error) {
				return c.generate(ctx, c.primary, directPrompt(false))
			},
		},
		{
			id:    TierFallbackModel,
			ready: func() bool { return c.fallback != nil },
			run: func(ctx context.Context) (string, error) {
				return c.generate(ctx, c.fallback, directPrompt(false))
			},
		},
		{
			id:  TierUnavailable,
			run: func(context.Context) (string, error) { return UnavailableMessage, nil },
		},
	}
}

// directTiers is the caller-selected direct mode: no agent, no context.
func (c *Coach) directTiers(historyBlock, input string) []tier {
	prompt := buildPrompt(knowledge.Bundle{IsEmpty: true}, historyBlock, input)
	return []tier{
		{
			id: TierDirectNoContext,
			run: func(ctx context.Context) (string, error) {
				return c.generate(ctx, c.primary, prompt)
			},
		},
		{
			id:    TierFallbackModel,
			ready: func() bool { return c.fallback != nil },
			run: func(ctx context.Context) (string, error) {
				return c.generate(ctx, c.fallback, prompt)
			},
		},
		{
			id:  TierUnavailable,
			run: func(context.Context) (string, error) { return UnavailableMessage, nil },
		},
	}
}
