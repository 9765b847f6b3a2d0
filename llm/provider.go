package llm

import (
	"context"
	"net/http"

	"github.com/automateai/agentrun/types"
)

// Request is the normalized completion request handed to every provider.
type Request struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// Completion is the normalized provider response. Provider and Model report
// what actually served the call, which may differ from the request after
// fallback or model mapping.
type Completion struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// Provider adapts one AI backend to the normalized request/response shape so
// downstream node logic never branches on provider identity.
type Provider interface {
	// Completion performs a synchronous completion call.
	Completion(ctx context.Context, req *Request) (*Completion, error)

	// HealthCheck performs a lightweight round-trip, used for "test my
	// credentials" surfaces, not during normal execution.
	HealthCheck(ctx context.Context) error

	// Name returns the provider's unique identifier.
	Name() string
}

// ClassifyStatus maps an upstream HTTP status to a typed provider error.
// Quota and transient upstream failures are retryable; malformed requests and
// auth failures are not.
func ClassifyStatus(provider string, status int, message string) *types.Error {
	err := types.NewError(types.ErrAIProvider, message).
		WithProvider(provider).
		WithHTTPStatus(status)

	switch {
	case status == http.StatusTooManyRequests:
		return err.WithRetryable(true)
	case status == http.StatusRequestTimeout:
		return err.WithRetryable(true)
	case status >= 500:
		return err.WithRetryable(true)
	default:
		return err.WithRetryable(false)
	}
}
