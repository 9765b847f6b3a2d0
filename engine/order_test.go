package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/automateai/agentrun/types"
)

func nodeOfKind(id string, kind types.NodeKind) types.AgentNode {
	return types.AgentNode{
		ID:   id,
		Type: "customNode",
		Data: types.NodeData{NodeType: kind},
	}
}

func TestTopologicalOrder_Linear(t *testing.T) {
	ag := &types.Agent{
		ID: "a1",
		Nodes: []types.AgentNode{
			nodeOfKind("in", types.NodeKindInput),
			nodeOfKind("ai", types.NodeKindAI),
			nodeOfKind("out", types.NodeKindOutput),
		},
		Edges: []types.AgentEdge{
			{ID: "e1", Source: "in", Target: "ai"},
			{ID: "e2", Source: "ai", Target: "out"},
		},
	}
	order, err := TopologicalOrder(ag)
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "ai", "out"}, order)
}

func TestTopologicalOrder_TiesFollowDeclarationOrder(t *testing.T) {
	ag := &types.Agent{
		Nodes: []types.AgentNode{
			nodeOfKind("in", types.NodeKindInput),
			nodeOfKind("b", types.NodeKindAI),
			nodeOfKind("a", types.NodeKindAI),
			nodeOfKind("out", types.NodeKindOutput),
		},
		Edges: []types.AgentEdge{
			{ID: "e1", Source: "in", Target: "b"},
			{ID: "e2", Source: "in", Target: "a"},
			{ID: "e3", Source: "b", Target: "out"},
			{ID: "e4", Source: "a", Target: "out"},
		},
	}
	order, err := TopologicalOrder(ag)
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "b", "a", "out"}, order)
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	ag := &types.Agent{
		Nodes: []types.AgentNode{
			nodeOfKind("a", types.NodeKindInput),
			nodeOfKind("b", types.NodeKindAI),
		},
		Edges: []types.AgentEdge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}
	_, err := TopologicalOrder(ag)
	require.Error(t, err)
	assert.Equal(t, types.ErrGraphValidation, types.KindOf(err))
}

func TestTopologicalOrder_UnknownEdgeEndpoint(t *testing.T) {
	ag := &types.Agent{
		Nodes: []types.AgentNode{nodeOfKind("a", types.NodeKindInput)},
		Edges: []types.AgentEdge{{ID: "e1", Source: "a", Target: "ghost"}},
	}
	_, err := TopologicalOrder(ag)
	require.Error(t, err)
	assert.Equal(t, types.ErrGraphValidation, types.KindOf(err))
}

// Every edge must point forward in the computed order, for arbitrary DAGs.
func TestTopologicalOrder_RespectsDependencies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		nodes := make([]types.AgentNode, n)
		for i := range nodes {
			nodes[i] = nodeOfKind(fmt.Sprintf("n%d", i), types.NodeKindAI)
		}

		// Edges only go from lower to higher index, so the graph is acyclic
		// by construction.
		var edges []types.AgentEdge
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) {
					edges = append(edges, types.AgentEdge{
						ID:     fmt.Sprintf("e%d_%d", i, j),
						Source: nodes[i].ID,
						Target: nodes[j].ID,
					})
				}
			}
		}

		ag := &types.Agent{Nodes: nodes, Edges: edges}
		order, err := TopologicalOrder(ag)
		require.NoError(t, err)
		require.Len(t, order, n)

		pos := make(map[string]int, n)
		for i, id := range order {
			pos[id] = i
		}
		for _, e := range edges {
			assert.Less(t, pos[e.Source], pos[e.Target],
				"edge %s must point forward", e.ID)
		}
	})
}
