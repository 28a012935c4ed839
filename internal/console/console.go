// Package console is the interactive chat front end: a line-oriented
// loop over stdin with a cached-response fast path and access to the
// weekly-plan workflow.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
	"github.com/liftwise/liftwise/internal/planner"
)

// Responder is the coaching surface the console talks to.
type Responder interface {
	Respond(ctx context.Context, input string, history []coach.Turn) string
}

// PlanRunner runs the interactive weekly-plan workflow.
type PlanRunner interface {
	Run(ctx context.Context, interact planner.Interactor) (planner.Result, error)
}

const (
	welcomeText = "Liftwise coach ready. Ask a training question, or type 'help'."
	helpText    = `Commands:
  help   show this help
  plan   build a weekly workout plan interactively
  quit   exit`
	goodbyeText = "Good luck with your training!"

	// historyLimit bounds the in-session conversation memory.
	historyLimit = 20
)

// Config carries the console's dependencies.
type Config struct {
	Coach   Responder
	Planner PlanRunner   // nil: plan command reports unavailability
	Cache   *cache.Cache // nil: no fast path
	In      io.Reader
	Out     io.Writer
	Logger  log.Logger
	Plain   bool // disable markdown rendering (tests, dumb terminals)
}

// Console runs the interactive loop. Single-session, not concurrent.
type Console struct {
	coach    Responder
	planner  PlanRunner
	cache    *cache.Cache
	in       *bufio.Scanner
	out      io.Writer
	logger   log.Logger
	renderer *glamour.TermRenderer
	history  []coach.Turn
}

// New creates a Console.
func New(cfg Config) (*Console, error) {
	if cfg.Coach == nil {
		return nil, errors.New("coach is required")
	}
	if cfg.In == nil || cfg.Out == nil {
		return nil, errors.New("input and output streams are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	c := &Console{
		coach:   cfg.Coach,
		planner: cfg.Planner,
		cache:   cfg.Cache,
		in:      bufio.NewScanner(cfg.In),
		out:     cfg.Out,
		logger:  cfg.Logger,
	}
	if !cfg.Plain {
		// Degrades to plain text when the terminal can't be probed.
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			c.renderer = r
		}
	}
	return c, nil
}

// Run loops until quit, EOF, or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	c.println(welcomeText)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.print("\nyou> ")
		line, ok := c.readLine()
		if !ok {
			c.println(goodbyeText)
			return c.in.Err()
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			continue
		case "quit", "exit", "q":
			c.println(goodbyeText)
			return nil
		case "help":
			c.println(helpText)
		case "plan":
			c.runPlan(ctx)
		default:
			c.answer(ctx, strings.TrimSpace(line))
		}
	}
}

// answer serves one question, trying the cache before the pipeline.
func (c *Console) answer(ctx context.Context, question string) {
	if c.cache != nil {
		if text, ok := c.cache.Get(question); ok {
			c.logger.Debug("cache hit", "question", question)
			c.printResponse(text)
			c.remember(question, text)
			return
		}
	}

	text := c.coach.Respond(ctx, question, c.history)
	c.printResponse(text)
	c.remember(question, text)

	if c.cache != nil && text != coach.UnavailableMessage {
		c.cache.Set(question, text)
	}
}

// runPlan drives the weekly-plan feedback loop over the console streams.
func (c *Console) runPlan(ctx context.Context) {
	if c.planner == nil {
		c.println("Weekly planning needs the tool agent; it is not configured.")
		return
	}

	res, err := c.planner.Run(ctx, func(plan string) (string, error) {
		c.printResponse(plan)
		c.print("\nFeedback (accept / cancel / or describe changes)> ")
		line, ok := c.readLine()
		if !ok {
			return "", io.EOF
		}
		return line, nil
	})
	if err != nil {
		c.println("Planning failed: " + err.Error())
		return
	}

	switch res.Status {
	case planner.StatusApproved:
		c.printResponse(res.Plan)
		c.println("Plan approved and saved to your training app.")
	case planner.StatusCancelled:
		c.println("Plan discarded.")
	}
}

func (c *Console) remember(question, answer string) {
	c.history = append(c.history,
		coach.Turn{Role: coach.RoleUser, Text: question},
		coach.Turn{Role: coach.RoleCoach, Text: answer},
	)
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

// printResponse renders markdown when a renderer is available.
func (c *Console) printResponse(text string) {
	if c.renderer != nil {
		if rendered, err := c.renderer.Render(text); err == nil {
			c.print(rendered)
			return
		}
	}
	c.println(text)
}

func (c *Console) println(s string) { c.print(s + "\n") }

func (c *Console) print(s string) {
	if _, err := fmt.Fprint(c.out, s); err != nil {
		c.logger.Warn("console write failed", "error", err)
	}
}
