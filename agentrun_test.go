package agentrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automateai/agentrun/types"
)

func TestRun_DefaultsToHeuristicProvider(t *testing.T) {
	ag := &types.Agent{
		ID:   "summarize",
		Name: "Summarize",
		Nodes: []types.AgentNode{
			{ID: "in", Type: "customNode", Data: types.NodeData{NodeType: types.NodeKindInput}},
			{ID: "ai", Type: "customNode", Data: types.NodeData{
				NodeType: types.NodeKindAI,
				Prompt:   "Summarize: {text}",
			}},
			{ID: "out", Type: "customNode", Data: types.NodeData{NodeType: types.NodeKindOutput}},
		},
		Edges: []types.AgentEdge{
			{ID: "e1", Source: "in", Target: "ai"},
			{ID: "e2", Source: "ai", Target: "out"},
		},
	}

	result, err := Run(context.Background(), ag, map[string]any{"text": "hello world"})

	require.NoError(t, err)
	require.True(t, result.Success)
	out, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "heuristic", out["provider"])
	assert.NotEmpty(t, out["content"])
}

func TestRun_InvalidGraph(t *testing.T) {
	ag := &types.Agent{ID: "empty"}

	_, err := Run(context.Background(), ag, nil)

	require.Error(t, err)
	assert.Equal(t, types.ErrGraphValidation, types.KindOf(err))
}
