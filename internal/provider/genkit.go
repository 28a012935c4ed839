package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/liftwise/liftwise/internal/config"
)

// GenkitFactory builds genkit-backed Handles.
//
// Local models are registered with the Ollama plugin on first use (Ollama
// has no auto-discovery). Hosted models are addressed by provider-qualified
// name and served by the OpenAI or Google AI plugin registered at Init.
type GenkitFactory struct {
	g            *genkit.Genkit
	ollamaPlugin *ollama.Ollama
	cfg          *config.Config

	mu      sync.Mutex
	defined map[string]bool // local models already registered with Ollama
}

// NewGenkitFactory creates a factory. ollamaPlugin may be nil when no local
// models are configured; resolving a local model then fails.
func NewGenkitFactory(g *genkit.Genkit, ollamaPlugin *ollama.Ollama, cfg *config.Config) *GenkitFactory {
	return &GenkitFactory{
		g:            g,
		ollamaPlugin: ollamaPlugin,
		cfg:          cfg,
		defined:      make(map[string]bool),
	}
}

// Handle implements Factory.
func (f *GenkitFactory) Handle(_ context.Context, model string) (Handle, error) {
	family := Classify(model, f.cfg.LocalModelPrefixes)

	switch family {
	case FamilyLocal:
		if f.ollamaPlugin == nil {
			return nil, fmt.Errorf("local model %q requested but ollama plugin not initialized", model)
		}
		f.defineLocal(model)
		return &genkitHandle{
			g:         f.g,
			name:      model,
			qualified: config.ProviderOllama + "/" + model,
			family:    FamilyLocal,
		}, nil

	default:
		qualified, err := hostedQualifiedName(model)
		if err != nil {
			return nil, err
		}
		return &genkitHandle{
			g:         f.g,
			name:      model,
			qualified: qualified,
			family:    FamilyHosted,
		}, nil
	}
}

// defineLocal registers a local model with the Ollama plugin exactly once.
func (f *GenkitFactory) defineLocal(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defined[model] {
		return
	}
	f.ollamaPlugin.DefineModel(f.g, ollama.ModelDefinition{
		Name: model,
		Type: "chat",
	}, nil)
	f.defined[model] = true
}

// hostedQualifiedName maps a hosted model name to its provider-qualified
// genkit name and verifies the vendor credential is present.
func hostedQualifiedName(model string) (string, error) {
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		if os.Getenv("GEMINI_API_KEY") == "" {
			return "", fmt.Errorf("hosted model %q requires GEMINI_API_KEY", model)
		}
		return config.ProviderGoogleAI + "/" + model, nil
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		return "", fmt.Errorf("hosted model %q requires OPENAI_API_KEY", model)
	}
	return config.ProviderOpenAI + "/" + model, nil
}

// genkitHandle serves generation requests through genkit.
type genkitHandle struct {
	g         *genkit.Genkit
	name      string
	qualified string
	family    Family
}

func (h *genkitHandle) Name() string      { return h.name }
func (h *genkitHandle) Family() Family    { return h.family }
func (h *genkitHandle) Qualified() string { return h.qualified }

// QualifiedName returns the genkit model name for a handle, falling back
// to the bare name when the handle does not expose one.
func QualifiedName(h Handle) string {
	if q, ok := h.(interface{ Qualified() string }); ok {
		return q.Qualified()
	}
	return h.Name()
}

func (h *genkitHandle) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, h.g,
		ai.WithModelName(h.qualified),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: model %s: %v", ErrGenerate, h.qualified, err)
	}
	return resp.Text(), nil
}
