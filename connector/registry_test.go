package connector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/automateai/agentrun/types"
)

// stubConnector scripts the Execute outcome for registry tests.
type stubConnector struct {
	name    string
	result  *Result
	err     error
	panics  bool
	valid   bool
}

func (s *stubConnector) Name() string                   { return s.name }
func (s *stubConnector) Description() string            { return "stub" }
func (s *stubConnector) ConfigSchema() *types.JSONSchema { return nil }
func (s *stubConnector) Validate(Config) bool           { return s.valid }
func (s *stubConnector) Test(context.Context, Config) (bool, error) {
	return s.valid, nil
}
func (s *stubConnector) Execute(context.Context, Config, any) (*Result, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestRegistry_ExecuteUnknownConnector(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	res := r.Execute(context.Background(), "slack", Config{}, nil)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "Connector 'slack' not found", res.Error)
	assert.Equal(t, int64(0), res.Metadata.DurationMs)
	assert.False(t, res.Metadata.Timestamp.IsZero())
}

func TestRegistry_ExecuteStampsMetadata(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&stubConnector{
		name:   "stub",
		result: successResult(map[string]any{"ok": true}, nil),
	})

	res := r.Execute(context.Background(), "stub", Config{}, nil)
	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, res.Metadata.DurationMs, int64(0))
	assert.False(t, res.Metadata.Timestamp.IsZero())
}

func TestRegistry_ExecuteConvertsErrors(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&stubConnector{name: "stub", err: fmt.Errorf("connection refused")})

	res := r.Execute(context.Background(), "stub", Config{}, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "connection refused", res.Error)
}

func TestRegistry_ExecuteRecoversPanics(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&stubConnector{name: "stub", panics: true})

	res := r.Execute(context.Background(), "stub", Config{}, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&stubConnector{name: "zeta"})
	r.Register(&stubConnector{name: "alpha"})
	r.Register(&stubConnector{name: "mid"})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.List())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&stubConnector{name: "stub", valid: false})
	r.Register(&stubConnector{name: "stub", valid: true})

	c, ok := r.Get("stub")
	require.True(t, ok)
	assert.True(t, c.Validate(Config{}))
}
