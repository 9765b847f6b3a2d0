package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics receives per-call timing. A nil recorder disables publication.
type Metrics interface {
	RecordConnectorCall(connector, status string, duration time.Duration)
}

// Registry holds named connectors behind a uniform execute/validate/test
// contract. Registration happens at startup; execution is read-only and safe
// for concurrent runs.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	metrics    Metrics
	logger     *zap.Logger
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithMetrics publishes per-call timing to the given recorder.
func WithMetrics(m Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty connector registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		connectors: make(map[string]Connector),
		logger:     logger.With(zap.String("component", "connector_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a connector under its own name, replacing any previous
// registration.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

// Get returns the connector registered under name.
func (r *Registry) Get(name string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	return c, ok
}

// List returns the registered connector names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named connector, stamping metadata duration and timestamp
// regardless of what the connector reports, and converting errors and panics
// into a failed Result rather than propagating them. Calling an unregistered
// name is terminal and non-retryable.
func (r *Registry) Execute(ctx context.Context, name string, config Config, input any) *Result {
	c, ok := r.Get(name)
	if !ok {
		return &Result{
			Success:  false,
			Error:    fmt.Sprintf("Connector '%s' not found", name),
			Metadata: Metadata{DurationMs: 0, Timestamp: time.Now()},
		}
	}

	start := time.Now()
	result := r.executeSafe(ctx, c, config, input)
	duration := time.Since(start)

	result.Metadata.DurationMs = duration.Milliseconds()
	if result.Metadata.Timestamp.IsZero() {
		result.Metadata.Timestamp = time.Now()
	}

	if r.metrics != nil {
		status := "success"
		if !result.Success {
			status = "error"
		}
		r.metrics.RecordConnectorCall(name, status, duration)
	}

	r.logger.Debug("connector executed",
		zap.String("connector", name),
		zap.Bool("success", result.Success),
		zap.Duration("duration", duration),
	)
	return result
}

func (r *Registry) executeSafe(ctx context.Context, c Connector, config Config, input any) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("connector panicked",
				zap.String("connector", c.Name()),
				zap.Any("panic", rec),
			)
			result = failureResult(fmt.Sprintf("connector %q panicked: %v", c.Name(), rec))
		}
	}()

	res, err := c.Execute(ctx, config, input)
	if err != nil {
		return failureResult(err.Error())
	}
	if res == nil {
		return failureResult(fmt.Sprintf("connector %q returned no result", c.Name()))
	}
	return res
}
