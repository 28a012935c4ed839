package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liftwise/liftwise/internal/log"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model string
		extra []string
		want  Family
	}{
		{"ollama tag", "llama3.2:3b", nil, FamilyLocal},
		{"tag with unknown base", "customcoach:7b", nil, FamilyLocal},
		{"bare llama", "llama3.3", nil, FamilyLocal},
		{"bare mistral", "mistral-nemo", nil, FamilyLocal},
		{"qwen", "qwen2.5-coder", nil, FamilyLocal},
		{"gemma", "gemma2", nil, FamilyLocal},
		{"phi", "phi4", nil, FamilyLocal},
		{"deepseek", "deepseek-r1", nil, FamilyLocal},
		{"mixed case", "LLaMA3.3", nil, FamilyLocal},
		{"openai model", "gpt-4o-mini", nil, FamilyHosted},
		{"gemini model", "gemini-2.5-flash", nil, FamilyHosted},
		{"gpt-5 nano", "gpt-5-nano", nil, FamilyHosted},
		{"extra prefix matches", "smollm2", []string{"smollm"}, FamilyLocal},
		{"extra prefix no match", "gpt-4o", []string{"smollm"}, FamilyHosted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.model, tt.extra); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

// fakeHandle is a minimal Handle for resolver tests.
type fakeHandle struct {
	name   string
	family Family
}

func (f *fakeHandle) Name() string   { return f.name }
func (f *fakeHandle) Family() Family { return f.family }
func (f *fakeHandle) Generate(context.Context, string) (string, error) {
	return "", nil
}

// fakeFactory records instantiation attempts and can fail for specific models.
func fakeFactory(attempted *[]string, failFor map[string]error) Factory {
	return func(_ context.Context, model string) (Handle, error) {
		*attempted = append(*attempted, model)
		if err, ok := failFor[model]; ok {
			return nil, err
		}
		return &fakeHandle{name: model, family: Classify(model, nil)}, nil
	}
}

func defaultFallbacks() FallbackModels {
	return FallbackModels{
		Local:  "llama3.2:3b",
		OpenAI: "gpt-4o-mini",
		Gemini: "gemini-2.5-flash",
	}
}

func TestCandidates_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model string
		creds Credentials
		want  []string
	}{
		{
			name:  "local request no hosted credentials",
			model: "qwen2.5:7b",
			creds: Credentials{Local: true},
			want:  []string{"qwen2.5:7b", "llama3.2:3b"},
		},
		{
			name:  "local request with openai credentials",
			model: "qwen2.5:7b",
			creds: Credentials{Local: true, OpenAI: true},
			want:  []string{"qwen2.5:7b", "llama3.2:3b", "gpt-4o-mini"},
		},
		{
			name:  "local request equal to local fallback",
			model: "llama3.2:3b",
			creds: Credentials{Local: true, Gemini: true},
			want:  []string{"llama3.2:3b", "gemini-2.5-flash"},
		},
		{
			name:  "hosted openai request with local capability",
			model: "gpt-5-nano",
			creds: Credentials{Local: true, OpenAI: true},
			want:  []string{"gpt-5-nano", "gpt-4o-mini", "llama3.2:3b"},
		},
		{
			name:  "hosted gemini request",
			model: "gemini-2.5-pro",
			creds: Credentials{Gemini: true},
			want:  []string{"gemini-2.5-pro", "gemini-2.5-flash"},
		},
		{
			name:  "hosted request without local capability",
			model: "gpt-5-nano",
			creds: Credentials{OpenAI: true},
			want:  []string{"gpt-5-nano", "gpt-4o-mini"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var attempted []string
			r := NewResolver(fakeFactory(&attempted, nil), defaultFallbacks(), tt.creds, nil, log.NewNop())

			var got []string
			for _, c := range r.Candidates(tt.model) {
				got = append(got, c.Model)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Candidates(%q) mismatch (-want +got):\n%s", tt.model, diff)
			}
		})
	}
}

func TestResolve_PrimaryAndFallback(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(fakeFactory(&attempted, nil), defaultFallbacks(),
		Credentials{Local: true, OpenAI: true}, nil, log.NewNop())

	res, err := r.Resolve(context.Background(), "qwen2.5:7b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Primary.Name(); got != "qwen2.5:7b" {
		t.Errorf("Primary.Name() = %q, want %q", got, "qwen2.5:7b")
	}
	if res.Primary.Family() != FamilyLocal {
		t.Errorf("Primary.Family() = %v, want local", res.Primary.Family())
	}
	if res.Fallback == nil || res.Fallback.Name() != "llama3.2:3b" {
		t.Errorf("expected fallback llama3.2:3b, got %+v", res.Fallback)
	}
	// Third candidate must not be instantiated once two handles exist
	want := []string{"qwen2.5:7b", "llama3.2:3b"}
	if diff := cmp.Diff(want, attempted); diff != "" {
		t.Errorf("instantiation attempts mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SkipsFailedCandidates(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(
		fakeFactory(&attempted, map[string]error{"qwen2.5:7b": errors.New("model not pulled")}),
		defaultFallbacks(), Credentials{Local: true, OpenAI: true}, nil, log.NewNop())

	res, err := r.Resolve(context.Background(), "qwen2.5:7b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Requested model failed, so the same-family fallback is promoted to
	// primary and the cross-family candidate backs it up.
	if got := res.Primary.Name(); got != "llama3.2:3b" {
		t.Errorf("Primary.Name() = %q, want promoted fallback", got)
	}
	if res.Fallback == nil || res.Fallback.Name() != "gpt-4o-mini" {
		t.Errorf("expected cross-family fallback gpt-4o-mini, got %+v", res.Fallback)
	}
}

func TestResolve_SingleCandidateHasNoFallback(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(fakeFactory(&attempted, nil), defaultFallbacks(),
		Credentials{Local: true}, nil, log.NewNop())

	res, err := r.Resolve(context.Background(), "llama3.2:3b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Fallback != nil {
		t.Errorf("expected no fallback, got %q", res.Fallback.Name())
	}
}

func TestResolve_AllCandidatesFailIsFatal(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(
		fakeFactory(&attempted, map[string]error{
			"gpt-5-nano":  errors.New("auth"),
			"gpt-4o-mini": errors.New("auth"),
		}),
		defaultFallbacks(), Credentials{OpenAI: true}, nil, log.NewNop())

	_, err := r.Resolve(context.Background(), "gpt-5-nano")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Errorf("expected ErrResolutionFailed, got %v", err)
	}
}

func TestResolve_EmptyModel(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(fakeFactory(&attempted, nil), defaultFallbacks(),
		Credentials{Local: true}, nil, log.NewNop())

	_, err := r.Resolve(context.Background(), "")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Errorf("expected ErrResolutionFailed, got %v", err)
	}
}

func TestResolve_CustomLocalPrefix(t *testing.T) {
	t.Parallel()
	var attempted []string
	r := NewResolver(fakeFactory(&attempted, nil), defaultFallbacks(),
		Credentials{Local: true}, []string{"smollm"}, log.NewNop())

	res, err := r.Resolve(context.Background(), "smollm2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Fallback == nil || res.Fallback.Name() != "llama3.2:3b" {
		t.Errorf("expected local fallback for custom prefix, got %+v", res.Fallback)
	}
}
