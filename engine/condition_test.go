package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalCondition_Comparisons(t *testing.T) {
	ctx := map[string]any{
		"score": 85.0,
		"name":  "alice",
		"user": map[string]any{
			"age":    30.0,
			"active": true,
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"score > 80", true},
		{"score >= 85", true},
		{"score < 85", false},
		{"score <= 85", true},
		{"score == 85", true},
		{"score != 85", false},
		{"name == 'alice'", true},
		{"name != \"bob\"", true},
		{"user.age > 18", true},
		{"user.active == true", true},
		{"user.active", true},
		{"missing.path == null", true},
		{"missing.path", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalCondition(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalCondition_Boolean(t *testing.T) {
	ctx := map[string]any{"a": 5.0, "b": "x", "c": false}

	tests := []struct {
		expr string
		want bool
	}{
		{"a > 1 && b == 'x'", true},
		{"a > 10 && b == 'x'", false},
		{"a > 10 || b == 'x'", true},
		{"!(a > 10)", true},
		{"!c", true},
		{"(a > 1 || c) && b != 'y'", true},
		{"a > 1 && (c || b == 'x')", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalCondition(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalCondition_Errors(t *testing.T) {
	ctx := map[string]any{"a": 1.0}

	for _, expr := range []string{
		"",
		"a >",
		"a === 1",
		"(a > 1",
		"a > 1 &&",
		"'unterminated",
		"a @ 1",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := EvalCondition(expr, ctx)
			assert.Error(t, err)
		})
	}
}

func TestEvalCondition_NoCodeExecution(t *testing.T) {
	// Function-call shapes must not parse; identifiers followed by an open
	// paren are a syntax error, not an invocation.
	_, err := EvalCondition("len(a) > 0", map[string]any{"a": "x"})
	assert.Error(t, err)
}

func TestLookupPath(t *testing.T) {
	ctx := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 42.0},
		},
	}
	assert.Equal(t, 42.0, LookupPath(ctx, "a.b.c"))
	assert.Nil(t, LookupPath(ctx, "a.b.missing"))
	assert.Nil(t, LookupPath(ctx, "a.b.c.too.deep"))
}
