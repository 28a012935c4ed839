package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
)

// scriptedResponder returns numbered plans and records every input.
type scriptedResponder struct {
	calls       int
	inputs      []string
	seededCalls int
}

func (s *scriptedResponder) Respond(_ context.Context, input string, _ []coach.Turn) string {
	s.calls++
	s.inputs = append(s.inputs, input)
	return fmt.Sprintf("response %d", s.calls)
}

func (s *scriptedResponder) RespondSeeded(_ context.Context, input string, _ []coach.Turn, _ ...string) string {
	s.calls++
	s.seededCalls++
	s.inputs = append(s.inputs, input)
	return fmt.Sprintf("plan %d", s.calls)
}

// scriptedInteractor returns feedback lines in order.
func scriptedInteractor(t *testing.T, lines ...string) Interactor {
	t.Helper()
	i := 0
	return func(string) (string, error) {
		if i >= len(lines) {
			t.Fatal("interactor called more times than scripted")
		}
		line := lines[i]
		i++
		return line, nil
	}
}

func newTestPlanner(t *testing.T, r Responder, maxRevisions int) *Planner {
	t.Helper()
	p, err := New(r, nil, maxRevisions, log.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestRun_AcceptFirstPlan(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 0)

	res, err := p.Run(context.Background(), scriptedInteractor(t, "accept"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusApproved {
		t.Errorf("Status = %v, want approved", res.Status)
	}
	if res.Revisions != 0 {
		t.Errorf("Revisions = %d, want 0", res.Revisions)
	}
	// One seeded generation plus the finalize call.
	if r.seededCalls != 1 || r.calls != 2 {
		t.Errorf("calls = %d (seeded %d), want 2 (seeded 1)", r.calls, r.seededCalls)
	}
	if !strings.Contains(r.inputs[1], "plan 1") {
		t.Error("finalize instruction does not carry the approved plan")
	}
}

func TestRun_CancelFirstPlan(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 0)

	res, err := p.Run(context.Background(), scriptedInteractor(t, "cancel"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusCancelled {
		t.Errorf("Status = %v, want cancelled", res.Status)
	}
	if r.calls != 1 {
		t.Errorf("cancel triggered %d responder calls, want 1", r.calls)
	}
}

func TestRun_FeedbackTriggersOneRevision(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 0)

	res, err := p.Run(context.Background(), scriptedInteractor(t, "more leg volume please", "accept"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusApproved {
		t.Errorf("Status = %v, want approved", res.Status)
	}
	if res.Revisions != 1 {
		t.Errorf("Revisions = %d, want 1", res.Revisions)
	}
	// The revision request carries the prior plan and the feedback.
	revision := r.inputs[1]
	if !strings.Contains(revision, "plan 1") {
		t.Error("revision request missing the prior plan text")
	}
	if !strings.Contains(revision, "more leg volume please") {
		t.Error("revision request missing the feedback")
	}
}

func TestRun_RevisionBound(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 2)

	res, err := p.Run(context.Background(), scriptedInteractor(t, "tweak 1", "tweak 2", "tweak 3"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusCancelled {
		t.Errorf("Status = %v, want cancelled at the bound", res.Status)
	}
	if res.Revisions != 2 {
		t.Errorf("Revisions = %d, want 2", res.Revisions)
	}
	// Initial plan + two revisions; the third tweak is rejected unserved.
	if r.calls != 3 {
		t.Errorf("responder calls = %d, want 3", r.calls)
	}
}

func TestRun_InteractorErrorCancels(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 0)

	res, err := p.Run(context.Background(), func(string) (string, error) {
		return "", errors.New("console closed")
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusCancelled {
		t.Errorf("Status = %v, want cancelled", res.Status)
	}
}

func TestRun_NilInteractor(t *testing.T) {
	t.Parallel()
	p := newTestPlanner(t, &scriptedResponder{}, 0)
	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Error("expected error for nil interactor")
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	r := &scriptedResponder{}
	p := newTestPlanner(t, r, 0)

	got := p.Generate(context.Background())
	if got != "plan 1" {
		t.Errorf("Generate() = %q", got)
	}
	if r.seededCalls != 1 {
		t.Errorf("seeded calls = %d, want 1", r.seededCalls)
	}
	if !strings.Contains(r.inputs[0], "weekly workout plan") {
		t.Error("plan instruction missing from responder input")
	}
}

func TestNew_RequiresResponder(t *testing.T) {
	t.Parallel()
	if _, err := New(nil, nil, 0, log.NewNop()); err == nil {
		t.Error("expected error without a responder")
	}
}

func TestClassifyFeedback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want feedbackKind
	}{
		{"accept", feedbackAccept},
		{"  Approve ", feedbackAccept},
		{"YES", feedbackAccept},
		{"looks good", feedbackAccept},
		{"cancel", feedbackCancel},
		{"Abort", feedbackCancel},
		{"no", feedbackCancel},
		{"no deadlifts please", feedbackRevise},
		{"yes but swap bench for dips", feedbackRevise},
		{"", feedbackRevise},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			if got := classifyFeedback(tt.text); got != tt.want {
				t.Errorf("classifyFeedback(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	t.Parallel()

	// 2026-08-29 is a Saturday; its week starts Monday the 24th.
	sat := time.Date(2026, 8, 29, 15, 4, 0, 0, time.UTC)
	if got := weekStart(sat); got.Day() != 24 || got.Weekday() != time.Monday {
		t.Errorf("weekStart(Saturday) = %v", got)
	}

	mon := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if got := weekStart(mon); !got.Equal(mon) {
		t.Errorf("weekStart(Monday) = %v, want the same day", got)
	}
}
