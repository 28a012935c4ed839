package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"

	"github.com/liftwise/liftwise/internal/knowledge"
	"github.com/liftwise/liftwise/internal/log"
	"github.com/liftwise/liftwise/internal/provider"
)

// fakeHandle implements provider.Handle with canned output and call recording.
type fakeHandle struct {
	name     string
	family   provider.Family
	response string
	err      error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeHandle) Name() string { return f.name }

func (f *fakeHandle) Family() provider.Family { return f.family }

func (f *fakeHandle) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeHandle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeHandle) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeBuilder returns a fixed bundle and records calls.
type fakeBuilder struct {
	bundle knowledge.Bundle

	mu    sync.Mutex
	calls int
	seeds []string
}

func (f *fakeBuilder) Build(_ context.Context, _ string, seeds ...string) knowledge.Bundle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seeds = append(f.seeds, seeds...)
	return f.bundle
}

func (f *fakeBuilder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAgent returns a canned final message or error.
type fakeAgent struct {
	response string
	err      error

	mu    sync.Mutex
	calls int
}

func (f *fakeAgent) Run(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeAgent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCoach(t *testing.T, cfg Config) *Coach {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = rate.NewLimiter(rate.Inf, 1)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func contextBundle() knowledge.Bundle {
	return knowledge.Bundle{
		Summary: "train twice per week per muscle",
		Sources: []string{"hypertrophy.md"},
	}
}

func TestNew_RequiresPrimary(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Logger: log.NewNop()}); err == nil {
		t.Error("expected error without a primary handle")
	}
}

func TestRespond_AgentTierWinsWithoutWastedCalls(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "direct"}
	agent := &fakeAgent{response: "agent answer"}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder, Agent: agent})
	got := c.Respond(context.Background(), "how heavy should I squat?", nil)

	if got != "agent answer" {
		t.Errorf("Respond() = %q, want agent answer", got)
	}
	if agent.callCount() != 1 {
		t.Errorf("agent calls = %d, want 1", agent.callCount())
	}
	if primary.callCount() != 0 {
		t.Errorf("model was called %d times despite agent success", primary.callCount())
	}
}

func TestRespond_AgentFailureFallsToContextTier(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "direct answer"}
	agent := &fakeAgent{err: errors.New("mcp transport closed")}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder, Agent: agent})
	got := c.Respond(context.Background(), "how heavy should I squat?", nil)

	if got != "direct answer" {
		t.Errorf("Respond() = %q, want direct answer", got)
	}
	// The bundle built before the agent attempt is reused, not rebuilt.
	if builder.callCount() != 1 {
		t.Errorf("builder calls = %d, want 1", builder.callCount())
	}
	if !strings.Contains(primary.lastPrompt(), "train twice per week per muscle") {
		t.Error("direct prompt missing the context summary")
	}
	if !strings.Contains(primary.lastPrompt(), "hypertrophy.md") {
		t.Error("direct prompt missing the sources line")
	}
}

func TestRespond_EmptyBundleSkipsContextTier(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "plain answer"}
	builder := &fakeBuilder{bundle: knowledge.Bundle{IsEmpty: true}}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder})
	got := c.Respond(context.Background(), "what should I train today?", nil)

	if got != "plain answer" {
		t.Errorf("Respond() = %q", got)
	}
	if primary.callCount() != 1 {
		t.Fatalf("primary calls = %d, want 1", primary.callCount())
	}
	if strings.Contains(primary.lastPrompt(), "Reference material") {
		t.Error("empty bundle must not render a reference section")
	}
}

func TestRespond_FallbackModelTier(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "gpt-4o-mini", family: provider.FamilyHosted, err: errors.New("auth expired")}
	fallback := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "fallback answer"}

	c := newTestCoach(t, Config{Primary: primary, Fallback: fallback})
	got := c.Respond(context.Background(), "how do I warm up?", nil)

	if got != "fallback answer" {
		t.Errorf("Respond() = %q, want fallback answer", got)
	}
	if fallback.callCount() != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.callCount())
	}
}

func TestRespond_AllTiersFailReturnsUnavailable(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "gpt-4o-mini", family: provider.FamilyHosted, err: errors.New("invalid api key")}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder})
	got := c.Respond(context.Background(), "how heavy should I squat?", nil)

	if got != UnavailableMessage {
		t.Errorf("Respond() = %q, want the exact unavailable message", got)
	}
	// DirectWithContext and DirectNoContext were both attempted.
	if primary.callCount() != 2 {
		t.Errorf("primary calls = %d, want 2", primary.callCount())
	}
}

func TestRespond_GateSuppressesRetrieval(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "sleep advice"}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder})
	got := c.Respond(context.Background(), "I only slept 5 hours and walked 3,000 steps", nil)

	if got != "sleep advice" {
		t.Errorf("Respond() = %q", got)
	}
	if builder.callCount() != 0 {
		t.Errorf("builder was called %d times for a metric-only message", builder.callCount())
	}
	if strings.Contains(primary.lastPrompt(), "Reference material") {
		t.Error("suppressed retrieval still rendered a reference section")
	}
}

func TestRespondSeeded_PassesSeedsAndSkipsGate(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "plan"}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder})
	// A metric-flavored input would be gated in Respond; seeded calls bypass it.
	c.RespondSeeded(context.Background(), "I slept badly, plan my week", nil, "training volume and frequency")

	if builder.callCount() != 1 {
		t.Fatalf("builder calls = %d, want 1", builder.callCount())
	}
	builder.mu.Lock()
	defer builder.mu.Unlock()
	if len(builder.seeds) != 1 || builder.seeds[0] != "training volume and frequency" {
		t.Errorf("seeds = %v", builder.seeds)
	}
}

func TestRespondDirect_SkipsAgentAndContext(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "series analysis"}
	agent := &fakeAgent{response: "should not run"}
	builder := &fakeBuilder{bundle: contextBundle()}

	c := newTestCoach(t, Config{Primary: primary, Builder: builder, Agent: agent})
	got := c.RespondDirect(context.Background(), "analyze these step counts: 4000, 9000, 12000", nil)

	if got != "series analysis" {
		t.Errorf("RespondDirect() = %q", got)
	}
	if agent.callCount() != 0 {
		t.Error("direct mode invoked the agent")
	}
	if builder.callCount() != 0 {
		t.Error("direct mode invoked retrieval")
	}
}

func TestRespond_HistoryRendered(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal, response: "answer"}
	c := newTestCoach(t, Config{Primary: primary})

	history := []Turn{
		{Role: RoleUser, Text: "I want to deadlift more"},
		{Role: RoleCoach, Text: "Add a second pulling day"},
	}
	c.Respond(context.Background(), "how much more volume?", history)

	prompt := primary.lastPrompt()
	if !strings.Contains(prompt, "User: I want to deadlift more") {
		t.Error("history turn missing from prompt")
	}
	if !strings.Contains(prompt, "Coach: Add a second pulling day") {
		t.Error("coach turn missing from prompt")
	}
}

func TestCoach_Accessors(t *testing.T) {
	t.Parallel()
	primary := &fakeHandle{name: "llama3.2:3b", family: provider.FamilyLocal}
	fallback := &fakeHandle{name: "gpt-4o-mini", family: provider.FamilyHosted}
	agent := &fakeAgent{}

	c := newTestCoach(t, Config{Primary: primary, Fallback: fallback, Agent: agent})
	if c.PrimaryModel() != "llama3.2:3b" {
		t.Errorf("PrimaryModel() = %q", c.PrimaryModel())
	}
	if c.FallbackModel() != "gpt-4o-mini" {
		t.Errorf("FallbackModel() = %q", c.FallbackModel())
	}
	if !c.AgentAvailable() {
		t.Error("AgentAvailable() = false")
	}
	if c.RetrieverAvailable() {
		t.Error("RetrieverAvailable() = true without a builder")
	}

	bare := newTestCoach(t, Config{Primary: primary})
	if bare.FallbackModel() != "" {
		t.Errorf("FallbackModel() = %q without a fallback", bare.FallbackModel())
	}
}

func TestRenderHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		if got := renderHistory(nil, 6); got != "" {
			t.Errorf("renderHistory(nil) = %q", got)
		}
	})

	t.Run("keeps most recent turns", func(t *testing.T) {
		t.Parallel()
		var history []Turn
		for i := 0; i < 10; i++ {
			history = append(history, Turn{Role: RoleUser, Text: strings.Repeat("a", 10)})
		}
		history = append(history, Turn{Role: RoleCoach, Text: "newest"})
		got := renderHistory(history, 6)
		if strings.Count(got, "\n") != 5 {
			t.Errorf("expected 6 lines, got %q", got)
		}
		if !strings.Contains(got, "newest") {
			t.Error("newest turn dropped")
		}
	})

	t.Run("caps single message with ellipsis", func(t *testing.T) {
		t.Parallel()
		got := renderHistory([]Turn{{Role: RoleUser, Text: strings.Repeat("x", 1000)}}, 6)
		if !strings.HasSuffix(got, "…") {
			t.Error("long message not marked with ellipsis")
		}
		if len(got) > turnCharLimit+len("User: ")+len("…") {
			t.Errorf("rendered turn too long: %d", len(got))
		}
	})

	t.Run("enforces total budget", func(t *testing.T) {
		t.Parallel()
		var history []Turn
		for i := 0; i < 6; i++ {
			history = append(history, Turn{Role: RoleUser, Text: strings.Repeat("y", 700)})
		}
		got := renderHistory(history, 6)
		if len(got) > historyCharBudget {
			t.Errorf("rendered history %d chars, budget %d", len(got), historyCharBudget)
		}
	})
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	t.Parallel()
	got := buildPrompt(knowledge.Bundle{IsEmpty: true}, "", "hello")
	if strings.Contains(got, "Reference material") || strings.Contains(got, "Sources:") {
		t.Error("empty bundle rendered labeled sections")
	}
	if strings.Contains(got, "Conversation so far") {
		t.Error("empty history rendered a conversation section")
	}
	if !strings.Contains(got, "hello") {
		t.Error("input missing from prompt")
	}
}
