package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/automateai/agentrun/connector"
	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/types"
)

// NodeExecutor runs a single node kind. The input map is the accumulated
// execution context; the returned map is merged back into it.
type NodeExecutor interface {
	Execute(ctx context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error)
}

// inputExecutor validates the run input against the node's schema and fills
// in declared defaults for absent keys.
type inputExecutor struct{}

func (inputExecutor) Execute(_ context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	for k, v := range node.Data.Defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	if node.Data.InputSchema != nil {
		if err := node.Data.InputSchema.Validate(out); err != nil {
			return nil, types.NewError(types.ErrValidation, err.Error())
		}
	}
	return out, nil
}

// aiExecutor renders the node prompt and asks the provider manager for a
// completion. When every configured provider is exhausted it degrades to the
// deterministic heuristic provider rather than failing the run.
type aiExecutor struct {
	manager   *llm.Manager
	heuristic llm.Provider
	logger    *zap.Logger
}

func newAIExecutor(manager *llm.Manager, logger *zap.Logger) *aiExecutor {
	return &aiExecutor{
		manager:   manager,
		heuristic: llm.NewHeuristicProvider(),
		logger:    logger,
	}
}

func (e *aiExecutor) Execute(ctx context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error) {
	prompt := RenderTemplate(node.Data.Prompt, input)
	if prompt == "" {
		return nil, types.NewError(types.ErrValidation,
			fmt.Sprintf("ai node %s has no prompt", node.ID))
	}

	opts := llm.Options{EnableFallback: true}
	if node.Data.Temperature != 0 {
		opts.Temperature = node.Data.Temperature
	}
	if node.Data.MaxTokens != 0 {
		opts.MaxTokens = node.Data.MaxTokens
	}

	completion, err := e.manager.GenerateCompletion(ctx, node.Data.Provider, prompt, node.Data.Model, opts)
	if err != nil {
		e.logger.Warn("all ai providers failed, using heuristic completion",
			zap.String("node_id", node.ID),
			zap.Error(err))
		completion, err = e.heuristic.Completion(ctx, &llm.Request{
			Prompt:      prompt,
			Model:       node.Data.Model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"content":     completion.Content,
		"provider":    completion.Provider,
		"model":       completion.Model,
		"tokens_used": completion.TokensUsed,
	}, nil
}

// logicExecutor evaluates the node condition against the context. The result
// drives edge gating in the engine; the boolean also lands in the context so
// later prompts can reference it.
type logicExecutor struct{}

func (logicExecutor) Execute(_ context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error) {
	if node.Data.Condition == "" {
		return nil, types.NewError(types.ErrValidation,
			fmt.Sprintf("logic node %s has no condition", node.ID))
	}
	ok, err := EvalCondition(node.Data.Condition, input)
	if err != nil {
		return nil, err
	}
	branch := "false"
	if ok {
		branch = "true"
	}
	return map[string]any{
		"result": ok,
		"branch": branch,
	}, nil
}

// apiExecutor delegates the HTTP call to the connector registry so the same
// timeout, error shaping and duration accounting applies as for any other
// connector invocation.
type apiExecutor struct {
	registry *connector.Registry
}

func (e *apiExecutor) Execute(ctx context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error) {
	if node.Data.APIEndpoint == "" {
		return nil, types.NewError(types.ErrValidation,
			fmt.Sprintf("api node %s has no endpoint", node.ID))
	}
	cfg := connector.Config{
		"endpoint": RenderTemplate(node.Data.APIEndpoint, input),
		"method":   node.Data.APIMethod,
	}
	if len(node.Data.APIHeaders) > 0 {
		headers := make(map[string]any, len(node.Data.APIHeaders))
		for k, v := range node.Data.APIHeaders {
			headers[k] = RenderTemplate(v, input)
		}
		cfg["headers"] = headers
	}
	if len(node.Data.APIBody) > 0 {
		var body any
		if err := json.Unmarshal(node.Data.APIBody, &body); err != nil {
			return nil, types.NewError(types.ErrValidation,
				fmt.Sprintf("api node %s has malformed body: %v", node.ID, err))
		}
		cfg["body"] = body
	}

	res := e.registry.Execute(ctx, "http", cfg, input)
	if !res.Success {
		return nil, types.NewError(types.ErrInternal, res.Error)
	}

	out := map[string]any{"duration": res.Metadata.DurationMs}
	if data, ok := res.Data.(map[string]any); ok {
		out["statusCode"] = data["statusCode"]
		// JSON object bodies merge into the context; anything else stays
		// under "response".
		if body, ok := data["response"].(map[string]any); ok {
			for k, v := range body {
				out[k] = v
			}
		} else if data["response"] != nil {
			out["response"] = data["response"]
		}
	}
	return out, nil
}

// outputExecutor shapes the final result. With an output schema only the
// declared properties are kept; without one the whole context passes through.
type outputExecutor struct{}

func (outputExecutor) Execute(_ context.Context, node *types.AgentNode, input map[string]any) (map[string]any, error) {
	schema := node.Data.OutputSchema
	if schema == nil || len(schema.Properties) == 0 {
		out := make(map[string]any, len(input))
		for k, v := range input {
			out[k] = v
		}
		return out, nil
	}
	out := make(map[string]any, len(schema.Properties))
	for key := range schema.Properties {
		if v := LookupPath(input, key); v != nil {
			out[key] = v
		}
	}
	if err := schema.Validate(out); err != nil {
		return nil, types.NewError(types.ErrValidation, err.Error())
	}
	return out, nil
}
