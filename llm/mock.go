package llm

import (
	"context"
	"fmt"
	"strings"
)

// HeuristicProvider produces deterministic canned completions. It backs the
// engine's degraded mode: when every real provider is exhausted, workflows
// keep running against heuristic output instead of failing outright.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the degraded-mode provider.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

func (p *HeuristicProvider) Name() string { return "heuristic" }

func (p *HeuristicProvider) HealthCheck(ctx context.Context) error { return nil }

// Completion synthesizes a response from the prompt content. The output is a
// pure function of the request so repeated runs are reproducible.
func (p *HeuristicProvider) Completion(ctx context.Context, req *Request) (*Completion, error) {
	lower := strings.ToLower(req.Prompt)

	var content string
	switch {
	case strings.Contains(lower, "summar"):
		content = fmt.Sprintf("Summary (heuristic): %s", truncate(req.Prompt, 200))
	case strings.Contains(lower, "classif") || strings.Contains(lower, "categor"):
		content = `{"category":"general","confidence":0.5,"heuristic":true}`
	case strings.Contains(lower, "extract"):
		content = `{"extracted":{},"heuristic":true}`
	default:
		content = fmt.Sprintf("Processed %d characters of input (heuristic mode, no AI provider available).", len(req.Prompt))
	}

	return &Completion{
		Content:    content,
		Provider:   p.Name(),
		Model:      "heuristic-v1",
		TokensUsed: len(req.Prompt) / 4,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
