// Package provider resolves configured model names into generation handles.
//
// Models fall into two families: local models served by Ollama and hosted
// models reached through a vendor API. The family decides which fallback
// model is paired with the primary at resolution time, so failover never
// has to make a routing decision mid-conversation.
package provider

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrResolutionFailed indicates the configured model could not be
	// resolved to a usable handle. This is fatal at startup.
	ErrResolutionFailed = errors.New("model resolution failed")

	// ErrGenerate indicates a generation request to a resolved model failed.
	ErrGenerate = errors.New("generation failed")
)

// Family classifies a model by where it runs.
type Family string

const (
	// FamilyLocal models are served by a local Ollama instance.
	FamilyLocal Family = "local"
	// FamilyHosted models are reached through a vendor API.
	FamilyHosted Family = "hosted"
)

// localPrefixes are model-name prefixes recognized as local-family models.
// Ollama tags usually carry a ":" (llama3.2:3b), but bare names like
// "mistral" are common in configs, so known open-weight families match too.
var localPrefixes = []string{
	"llama",
	"mistral",
	"qwen",
	"gemma",
	"phi",
	"deepseek",
}

// Classify reports the family of a model name.
// A name containing ":" is an Ollama tag and therefore local; otherwise
// known open-weight prefixes (plus any extras from configuration) decide.
func Classify(model string, extraPrefixes []string) Family {
	if strings.Contains(model, ":") {
		return FamilyLocal
	}
	lower := strings.ToLower(model)
	for _, p := range localPrefixes {
		if strings.HasPrefix(lower, p) {
			return FamilyLocal
		}
	}
	for _, p := range extraPrefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return FamilyLocal
		}
	}
	return FamilyHosted
}

// Handle is a resolved model that can serve generation requests.
type Handle interface {
	// Name returns the bare model name (e.g. "llama3.2:3b").
	Name() string
	// Family returns the model's family.
	Family() Family
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
