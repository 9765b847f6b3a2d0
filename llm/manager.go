package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/automateai/agentrun/llm/retry"
	"github.com/automateai/agentrun/types"
)

// DefaultFallbackOrder is the candidate order used when the caller does not
// configure one. Preference follows latency and cost of the small models each
// provider family runs by default.
var DefaultFallbackOrder = []string{"anthropic", "openai", "google"}

// defaultModels maps a provider to the model used when a request names none,
// or names a model from a different provider family.
var defaultModels = map[string]string{
	"anthropic": "claude-3-5-haiku-20241022",
	"openai":    "gpt-4o-mini",
	"google":    "gemini-1.5-flash",
}

// Options tunes one completion call.
type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// EnableFallback advances through the candidate chain on failure. When
	// false only the preferred provider is tried.
	EnableFallback bool
}

// Metrics receives per-call accounting. A nil recorder disables publication.
type Metrics interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, tokens int)
	RecordLLMFallback(from, to string)
}

// Manager normalizes calls to multiple AI backends and applies an ordered
// fallback chain. It is a process-wide, read-mostly service: providers are
// registered at startup and never mutated during execution.
type Manager struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	limiters      map[string]*rate.Limiter
	fallbackOrder []string
	metrics       Metrics
	retryPolicy   *retry.Policy
	retryer       retry.Retryer
	logger        *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFallbackOrder overrides the default candidate order.
func WithFallbackOrder(order []string) ManagerOption {
	return func(m *Manager) {
		if len(order) > 0 {
			m.fallbackOrder = order
		}
	}
}

// WithMetrics publishes per-call accounting to the given recorder.
func WithMetrics(m Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithRetryPolicy retries transient failures against a provider in place
// before the fallback chain advances. When the policy names no RetryIf, only
// retryable errors are reattempted.
func WithRetryPolicy(p *retry.Policy) ManagerOption {
	return func(m *Manager) { m.retryPolicy = p }
}

// WithRateLimit installs a per-provider request rate limit.
func WithRateLimit(provider string, rps float64, burst int) ManagerOption {
	return func(m *Manager) {
		m.limiters[provider] = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewManager creates an empty provider manager.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		providers:     make(map[string]Provider),
		limiters:      make(map[string]*rate.Limiter),
		fallbackOrder: DefaultFallbackOrder,
		logger:        logger.With(zap.String("component", "llm_manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.retryPolicy != nil {
		policy := *m.retryPolicy
		if policy.RetryIf == nil {
			policy.RetryIf = types.IsRetryable
		}
		m.retryer = retry.New(&policy, m.logger)
	}
	return m
}

// Register adds a provider under its own name. Registration happens at
// startup; later calls replace the previous instance.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name()] = p
}

// Available returns the names of the configured providers in fallback order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for _, name := range m.fallbackOrder {
		if _, ok := m.providers[name]; ok {
			names = append(names, name)
		}
	}
	for name := range m.providers {
		if !contains(m.fallbackOrder, name) {
			names = append(names, name)
		}
	}
	return names
}

// IsAvailable reports whether a provider is configured.
func (m *Manager) IsAvailable(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.providers[name]
	return ok
}

// GenerateCompletion tries the preferred provider first, then (when fallback
// is enabled) the remaining candidates in order, reissuing the same prompt and
// options. The returned Completion reports the provider that actually served
// the call.
func (m *Manager) GenerateCompletion(ctx context.Context, preferred, prompt, model string, opts Options) (*Completion, error) {
	candidates := m.candidates(preferred, opts.EnableFallback)
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrAIProvider, "no AI providers configured").
			WithRetryable(false)
	}

	var lastErr error
	lastProvider := ""

	for _, name := range candidates {
		m.mu.RLock()
		provider, ok := m.providers[name]
		limiter := m.limiters[name]
		m.mu.RUnlock()
		if !ok {
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, types.NewError(types.ErrAIProvider, "rate limit wait canceled").
					WithProvider(name).WithCause(err)
			}
		}

		req := &Request{
			Prompt:       prompt,
			SystemPrompt: opts.SystemPrompt,
			Model:        compatibleModel(model, name),
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
		}

		m.logger.Debug("attempting completion",
			zap.String("provider", name),
			zap.String("model", req.Model),
		)

		callStart := time.Now()
		resp, err := m.complete(ctx, provider, req)
		if err == nil {
			resp.Provider = name
			if resp.Model == "" {
				resp.Model = req.Model
			}
			if m.metrics != nil {
				m.metrics.RecordLLMRequest(name, resp.Model, "success", time.Since(callStart), resp.TokensUsed)
				if lastProvider != "" {
					m.metrics.RecordLLMFallback(lastProvider, name)
				}
			}
			return resp, nil
		}

		if m.metrics != nil {
			m.metrics.RecordLLMRequest(name, req.Model, "error", time.Since(callStart), 0)
		}
		lastErr = err
		lastProvider = name
		m.logger.Warn("provider call failed",
			zap.String("provider", name),
			zap.String("model", req.Model),
			zap.Bool("retryable", types.IsRetryable(err)),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	perr := types.NewError(types.ErrAIProvider,
		fmt.Sprintf("all AI providers failed, last error from %s: %v", lastProvider, lastErr)).
		WithProvider(lastProvider).
		WithRetryable(types.IsRetryable(lastErr)).
		WithCause(lastErr)
	return nil, perr
}

// complete issues one provider call, reattempting in place when a retry
// policy is configured. Terminal errors advance the fallback chain without
// retrying.
func (m *Manager) complete(ctx context.Context, provider Provider, req *Request) (*Completion, error) {
	if m.retryer == nil {
		return provider.Completion(ctx, req)
	}
	var resp *Completion
	err := m.retryer.Do(ctx, func() error {
		var callErr error
		resp, callErr = provider.Completion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// TestProvider performs a live round-trip against one provider. It is a
// credential check for UI surfaces, never part of normal execution.
func (m *Manager) TestProvider(ctx context.Context, name string) bool {
	m.mu.RLock()
	provider, ok := m.providers[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return provider.HealthCheck(ctx) == nil
}

func (m *Manager) candidates(preferred string, fallback bool) []string {
	if preferred != "" && !fallback {
		return []string{preferred}
	}
	order := make([]string, 0, len(m.fallbackOrder)+1)
	if preferred != "" {
		order = append(order, preferred)
	}
	for _, name := range m.fallbackOrder {
		if name != preferred {
			order = append(order, name)
		}
	}
	return order
}

// compatibleModel maps the requested model onto the target provider's family,
// falling back to the provider default for cross-family requests.
func compatibleModel(requested, provider string) string {
	if requested == "" {
		return defaultModels[provider]
	}
	if ownsModel(provider, requested) {
		return requested
	}
	if def, ok := defaultModels[provider]; ok {
		return def
	}
	return requested
}

func ownsModel(provider, model string) bool {
	switch provider {
	case "anthropic":
		return hasPrefix(model, "claude")
	case "openai":
		return hasPrefix(model, "gpt") || hasPrefix(model, "o1") || hasPrefix(model, "o3")
	case "google":
		return hasPrefix(model, "gemini")
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
