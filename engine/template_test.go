package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	ctx := map[string]any{
		"topic": "weather",
		"user":  map[string]any{"name": "alice"},
		"count": 3.0,
	}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"simple", "Summarize {topic}", "Summarize weather"},
		{"dotted", "Hello {user.name}", "Hello alice"},
		{"number", "{count} items", "3 items"},
		{"unresolved stays", "keep {nope.nothing} here", "keep {nope.nothing} here"},
		{"no placeholders", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTemplate(tt.tpl, ctx))
		})
	}
}

func TestRenderTemplate_FullInput(t *testing.T) {
	ctx := map[string]any{"k": "v"}
	got := RenderTemplate("data: {input}", ctx)
	assert.Equal(t, `data: {"k":"v"}`, got)
}

func TestRenderTemplate_ObjectValue(t *testing.T) {
	ctx := map[string]any{"user": map[string]any{"name": "bob"}}
	got := RenderTemplate("{user}", ctx)
	assert.JSONEq(t, `{"name":"bob"}`, got)
}
