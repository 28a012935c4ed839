package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/liftwise/liftwise/internal/log"
)

// Factory builds a Handle for a bare model name.
// The production factory is genkit-backed (see GenkitFactory); tests
// inject their own.
type Factory func(ctx context.Context, model string) (Handle, error)

// Credentials records which backends are usable at startup.
type Credentials struct {
	Local  bool // an Ollama server is configured
	OpenAI bool // OPENAI_API_KEY present
	Gemini bool // GEMINI_API_KEY present
}

// CredentialsFromEnv detects vendor API keys from the environment.
// Local capability is decided by the caller (Ollama host configured).
func CredentialsFromEnv(localConfigured bool) Credentials {
	return Credentials{
		Local:  localConfigured,
		OpenAI: os.Getenv("OPENAI_API_KEY") != "",
		Gemini: os.Getenv("GEMINI_API_KEY") != "",
	}
}

func (c Credentials) hosted() bool { return c.OpenAI || c.Gemini }

// FallbackModels holds the per-family known-good fallback model names.
type FallbackModels struct {
	Local  string // e.g. "llama3.2:3b"
	OpenAI string // e.g. "gpt-4o-mini"
	Gemini string // e.g. "gemini-2.5-flash"
}

// Candidate is one entry in the ordered resolution list.
type Candidate struct {
	Model  string
	Family Family
}

// Resolution is the outcome of resolving a configured model: the primary
// handle plus a second handle tried when the primary fails mid-request.
// Fallback is nil when only one candidate could be instantiated.
type Resolution struct {
	Primary  Handle
	Fallback Handle
}

// Resolver turns configured model names into Resolutions.
type Resolver struct {
	factory       Factory
	fallbacks     FallbackModels
	creds         Credentials
	localPrefixes []string
	logger        log.Logger
}

// NewResolver creates a Resolver.
// extraLocalPrefixes extends the built-in local-family prefix set.
func NewResolver(factory Factory, fallbacks FallbackModels, creds Credentials, extraLocalPrefixes []string, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resolver{
		factory:       factory,
		fallbacks:     fallbacks,
		creds:         creds,
		localPrefixes: extraLocalPrefixes,
		logger:        logger,
	}
}

// Candidates builds the ordered resolution list for a requested model:
// the request itself, then the known-good fallback in the same family
// (if distinct), then a known-good model in the opposite family when that
// family has usable credentials. Duplicates are removed, order preserved.
func (r *Resolver) Candidates(model string) []Candidate {
	family := Classify(model, r.localPrefixes)

	var list []Candidate
	add := func(name string, fam Family) {
		if name == "" {
			return
		}
		for _, c := range list {
			if c.Model == name {
				return
			}
		}
		list = append(list, Candidate{Model: name, Family: fam})
	}

	add(model, family)

	switch family {
	case FamilyLocal:
		add(r.fallbacks.Local, FamilyLocal)
		if r.creds.hosted() {
			add(r.hostedKnownGood(model), FamilyHosted)
		}
	default:
		add(r.hostedFallback(model), FamilyHosted)
		if r.creds.Local {
			add(r.fallbacks.Local, FamilyLocal)
		}
	}

	return list
}

// Resolve walks the candidate list in order: the first handle that
// instantiates becomes the primary, the next distinct success the
// fallback. Individual candidate failures are logged and skipped; only
// a fully exhausted list is fatal.
func (r *Resolver) Resolve(ctx context.Context, model string) (*Resolution, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrResolutionFailed)
	}

	res := &Resolution{}
	for _, cand := range r.Candidates(model) {
		h, err := r.factory(ctx, cand.Model)
		if err != nil {
			r.logger.Warn("model candidate failed to initialize",
				"model", cand.Model,
				"family", cand.Family,
				"error", err,
			)
			continue
		}
		if res.Primary == nil {
			res.Primary = h
			continue
		}
		res.Fallback = h
		break
	}

	if res.Primary == nil {
		return nil, fmt.Errorf("%w: no candidate for %q could be initialized", ErrResolutionFailed, model)
	}

	fallbackName := ""
	if res.Fallback != nil {
		fallbackName = res.Fallback.Name()
	}
	r.logger.Info("model resolved",
		"requested", model,
		"model", res.Primary.Name(),
		"family", res.Primary.Family(),
		"fallback", fallbackName,
	)
	return res, nil
}

// hostedFallback picks the same-family fallback for a hosted model:
// Gemini-named models fall back within Gemini, everything else within
// OpenAI, subject to the vendor credential being present.
func (r *Resolver) hostedFallback(model string) string {
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		if r.creds.Gemini {
			return r.fallbacks.Gemini
		}
		if r.creds.OpenAI {
			return r.fallbacks.OpenAI
		}
		return ""
	}
	if r.creds.OpenAI {
		return r.fallbacks.OpenAI
	}
	if r.creds.Gemini {
		return r.fallbacks.Gemini
	}
	return ""
}

// hostedKnownGood picks the cross-family hosted candidate for a local
// primary, preferring the vendor whose credential is present.
func (r *Resolver) hostedKnownGood(string) string {
	if r.creds.OpenAI {
		return r.fallbacks.OpenAI
	}
	if r.creds.Gemini {
		return r.fallbacks.Gemini
	}
	return ""
}
