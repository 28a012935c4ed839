// Package hevy connects the coach to the user's Hevy training log
// through an MCP server run as a stdio subprocess. The agent hands the
// model the server's tools and lets it decide which to call.
package hevy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/liftwise/liftwise/internal/log"
)

// ErrAgent marks a failed agent run; the tier machine recovers from it.
var ErrAgent = errors.New("agent run failed")

const defaultMaxTurns = 8

// Config carries the agent's dependencies.
type Config struct {
	Genkit        *genkit.Genkit
	ModelName     string // provider-qualified, e.g. "ollama/llama3.2:3b"
	ClientOptions mcp.MCPClientOptions
	MaxTurns      int
	Logger        log.Logger
}

// Agent runs instructions against a model with the Hevy MCP tools
// attached. Safe for concurrent use; all fields are read-only after New.
type Agent struct {
	g          *genkit.Genkit
	host       *mcp.MCPHost
	serverName string
	modelName  string
	maxTurns   int
	toolRefs   []ai.ToolRef
	toolNames  string
	logger     log.Logger
}

// New starts the MCP subprocess, fetches its tool surface once, and
// returns a ready agent. An empty tool list is an error: an agent that
// cannot call tools adds nothing over a direct model call.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}

	host, err := mcp.NewMCPHost(cfg.Genkit, mcp.MCPHostOptions{
		Name:    "liftwise",
		Version: "1.0.0",
		MCPServers: []mcp.MCPServerConfig{
			{Name: cfg.ClientOptions.Name, Config: cfg.ClientOptions},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP host: %w", err)
	}

	tools, err := host.GetActiveTools(ctx, cfg.Genkit)
	if err != nil {
		return nil, fmt.Errorf("fetching MCP tools: %w", err)
	}
	if len(tools) == 0 {
		return nil, errors.New("MCP server exposed no tools")
	}

	refs := make([]ai.ToolRef, len(tools))
	names := make([]string, len(tools))
	for i, t := range tools {
		refs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		g:          cfg.Genkit,
		host:       host,
		serverName: cfg.ClientOptions.Name,
		modelName:  cfg.ModelName,
		maxTurns:   cfg.MaxTurns,
		toolRefs:   refs,
		toolNames:  strings.Join(names, ", "),
		logger:     cfg.Logger,
	}
	a.logger.Info("tool agent ready", "tools", a.toolNames, "max_turns", a.maxTurns)
	return a, nil
}

// Run executes one instruction with the tool surface attached and
// returns the model's final message.
func (a *Agent) Run(ctx context.Context, instruction string) (string, error) {
	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithPrompt(instruction),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAgent, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned an empty final message", ErrAgent)
	}
	return text, nil
}

// Tools returns the comma-separated tool names, for diagnostics.
func (a *Agent) Tools() string { return a.toolNames }

// Close disconnects the MCP subprocess.
func (a *Agent) Close(ctx context.Context) error {
	if err := a.host.Disconnect(ctx, a.serverName); err != nil {
		return fmt.Errorf("disconnecting %s: %w", a.serverName, err)
	}
	return nil
}
