// Package planner drives the weekly-plan workflow: generate a plan
// through the coaching pipeline, loop on user feedback, and finalize or
// abandon it. The loop holds no state beyond the plan text itself.
package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
)

// Status is a terminal state of the feedback loop.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of one workflow run.
type Result struct {
	Status    Status
	Plan      string
	Revisions int
}

// Responder generates plan text; satisfied by *coach.Coach.
type Responder interface {
	Respond(ctx context.Context, input string, history []coach.Turn) string
	RespondSeeded(ctx context.Context, input string, history []coach.Turn, seeds ...string) string
}

// Interactor shows a plan and collects one line of feedback.
// An error (e.g. EOF on a closed console) cancels the workflow.
type Interactor func(plan string) (feedback string, err error)

const defaultMaxRevisions = 10

// acceptTokens and cancelTokens classify feedback. Matched on the
// trimmed, lowercased full message, not substrings: "no deadlifts
// please" is a revision, not a cancellation.
var (
	acceptTokens = map[string]bool{"accept": true, "approve": true, "approved": true, "yes": true, "y": true, "ok": true, "looks good": true}
	cancelTokens = map[string]bool{"cancel": true, "abort": true, "no": true, "n": true, "quit": true, "stop": true}
)

// Planner runs the weekly-plan workflow.
type Planner struct {
	responder    Responder
	store        *Store // nil: plans are not persisted
	maxRevisions int
	logger       log.Logger
}

// New creates a Planner. maxRevisions <= 0 uses the default bound.
func New(responder Responder, store *Store, maxRevisions int, logger log.Logger) (*Planner, error) {
	if responder == nil {
		return nil, errors.New("responder is required")
	}
	if maxRevisions <= 0 {
		maxRevisions = defaultMaxRevisions
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Planner{
		responder:    responder,
		store:        store,
		maxRevisions: maxRevisions,
		logger:       logger,
	}, nil
}

// Generate produces a plan draft without entering the feedback loop;
// used by the HTTP surface, where there is no interactive session.
func (p *Planner) Generate(ctx context.Context) string {
	plan := p.responder.RespondSeeded(ctx, planInstruction, nil, seedQueries...)
	p.persist(ctx, plan, "draft", 0)
	return plan
}

// Run generates a plan and loops on feedback until the user accepts or
// cancels, or the revision bound is hit. Each revision is a fresh
// respond call carrying the prior plan and the feedback.
func (p *Planner) Run(ctx context.Context, interact Interactor) (Result, error) {
	if interact == nil {
		return Result{}, errors.New("interactor is required")
	}

	plan := p.responder.RespondSeeded(ctx, planInstruction, nil, seedQueries...)

	revisions := 0
	for {
		feedback, err := interact(plan)
		if err != nil {
			p.logger.Warn("plan interaction ended", "error", err)
			p.persist(ctx, plan, string(StatusCancelled), revisions)
			return Result{Status: StatusCancelled, Plan: plan, Revisions: revisions}, nil
		}

		switch classifyFeedback(feedback) {
		case feedbackAccept:
			p.logger.Info("weekly plan approved", "revisions", revisions)
			final := p.responder.Respond(ctx, finalizeInstruction(plan), nil)
			p.persist(ctx, plan, string(StatusApproved), revisions)
			return Result{Status: StatusApproved, Plan: final, Revisions: revisions}, nil

		case feedbackCancel:
			p.logger.Info("weekly plan cancelled", "revisions", revisions)
			p.persist(ctx, plan, string(StatusCancelled), revisions)
			return Result{Status: StatusCancelled, Plan: plan, Revisions: revisions}, nil

		default:
			revisions++
			if revisions > p.maxRevisions {
				p.logger.Warn("revision bound reached, cancelling", "max_revisions", p.maxRevisions)
				p.persist(ctx, plan, string(StatusCancelled), revisions-1)
				return Result{Status: StatusCancelled, Plan: plan, Revisions: revisions - 1}, nil
			}
			plan = p.responder.RespondSeeded(ctx, reviseInstruction(plan, feedback), nil, seedQueries...)
		}
	}
}

type feedbackKind int

const (
	feedbackRevise feedbackKind = iota
	feedbackAccept
	feedbackCancel
)

func classifyFeedback(text string) feedbackKind {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case acceptTokens[normalized]:
		return feedbackAccept
	case cancelTokens[normalized]:
		return feedbackCancel
	default:
		return feedbackRevise
	}
}

// persist saves the plan best-effort; storage failures never block the
// workflow.
func (p *Planner) persist(ctx context.Context, body, status string, revisions int) {
	if p.store == nil || body == "" {
		return
	}
	plan := Plan{
		WeekStart: weekStart(time.Now()),
		Status:    status,
		Body:      body,
		Revisions: revisions,
	}
	if err := p.store.Save(ctx, plan); err != nil {
		p.logger.Warn("saving plan failed", "status", status, "error", err)
	}
}

// weekStart returns the Monday of t's week.
func weekStart(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
