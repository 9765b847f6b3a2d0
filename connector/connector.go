package connector

import (
	"context"
	"time"

	"github.com/automateai/agentrun/types"
)

// Config is the free-form configuration a node attaches to a connector call.
type Config map[string]any

// Metadata carries telemetry about one connector execution. DurationMs and
// Timestamp are always stamped by the registry, never trusted from the
// connector itself.
type Metadata struct {
	DurationMs int64          `json:"duration"`
	Timestamp  time.Time      `json:"timestamp"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Result is the canonical return of a connector execution.
type Result struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Connector is a pluggable external-action implementation behind a uniform
// contract. Implementations must be safe for concurrent use: the registry is
// a process-wide singleton shared by all runs.
type Connector interface {
	// Name returns the unique registry key.
	Name() string

	// Description returns a short human-readable summary.
	Description() string

	// ConfigSchema describes the configuration fields for UI form generation.
	// The engine itself only relies on Validate/Execute/Test.
	ConfigSchema() *types.JSONSchema

	// Execute performs the external action.
	Execute(ctx context.Context, config Config, input any) (*Result, error)

	// Validate performs a cheap, synchronous structural check of required
	// configuration fields.
	Validate(config Config) bool

	// Test performs a live round-trip to verify credentials. It is a UX
	// affordance, never invoked during normal execution.
	Test(ctx context.Context, config Config) (bool, error)
}

func successResult(data any, extra map[string]any) *Result {
	return &Result{Success: true, Data: data, Metadata: Metadata{Timestamp: time.Now(), Extra: extra}}
}

func failureResult(errMsg string) *Result {
	return &Result{Success: false, Error: errMsg, Metadata: Metadata{Timestamp: time.Now()}}
}
