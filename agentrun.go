// Package agentrun provides a top-level convenience entry point for executing
// agent graphs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/automateai/agentrun"
//
//	result, err := agentrun.Run(ctx, agent, input)
//	result, err := agentrun.Run(ctx, agent, input, agentrun.WithAnthropic(apiKey))
//
// This wires a default engine with the standard connectors; AI nodes run on
// the deterministic heuristic provider unless a real provider is configured.
// Services that need queueing, metrics or custom connectors should assemble
// the engine, llm and connector packages directly.
package agentrun

import (
	"context"

	"go.uber.org/zap"

	"github.com/automateai/agentrun/connector"
	"github.com/automateai/agentrun/engine"
	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/llm/providers/anthropic"
	"github.com/automateai/agentrun/llm/providers/google"
	"github.com/automateai/agentrun/llm/providers/openai"
	"github.com/automateai/agentrun/types"
)

// Option configures the engine created by [Run].
type Option func(*runConfig)

type runConfig struct {
	logger    *zap.Logger
	providers []llm.Provider
	userID    string
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// WithAnthropic registers an Anthropic Claude provider.
func WithAnthropic(apiKey string) Option {
	return func(c *runConfig) {
		c.providers = append(c.providers, anthropic.New(anthropic.Config{APIKey: apiKey}, c.logger))
	}
}

// WithOpenAI registers an OpenAI provider.
func WithOpenAI(apiKey string) Option {
	return func(c *runConfig) {
		c.providers = append(c.providers, openai.New(openai.Config{APIKey: apiKey}, c.logger))
	}
}

// WithGoogle registers a Gemini provider.
func WithGoogle(apiKey string) Option {
	return func(c *runConfig) {
		c.providers = append(c.providers, google.New(google.Config{APIKey: apiKey}, c.logger))
	}
}

// WithProvider registers a pre-built provider.
func WithProvider(p llm.Provider) Option {
	return func(c *runConfig) { c.providers = append(c.providers, p) }
}

// WithUserID attributes the run to a user.
func WithUserID(id string) Option {
	return func(c *runConfig) { c.userID = id }
}

// Run executes one agent graph against the given input.
func Run(ctx context.Context, ag *types.Agent, input map[string]any, opts ...Option) (*types.Result, error) {
	cfg := &runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	manager := llm.NewManager(cfg.logger)
	for _, p := range cfg.providers {
		manager.Register(p)
	}

	registry := connector.NewRegistry(cfg.logger)
	registry.Register(connector.NewHTTPConnector(cfg.logger))
	registry.Register(connector.NewEmailConnector(nil, cfg.logger))

	eng := engine.New(manager, registry, cfg.logger)
	return eng.Execute(ctx, ag, input, engine.Options{UserID: cfg.userID})
}
