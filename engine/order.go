package engine

import (
	"fmt"

	"github.com/automateai/agentrun/types"
)

// TopologicalOrder returns the node IDs of ag in dependency order using
// Kahn's algorithm. Ties break in node declaration order so runs are
// deterministic. A cycle yields a GRAPH_VALIDATION error.
func TopologicalOrder(ag *types.Agent) ([]string, error) {
	indegree := make(map[string]int, len(ag.Nodes))
	adj := make(map[string][]string, len(ag.Nodes))
	for _, n := range ag.Nodes {
		indegree[n.ID] = 0
	}
	for _, e := range ag.Edges {
		if _, ok := indegree[e.Source]; !ok {
			return nil, types.NewError(types.ErrGraphValidation,
				fmt.Sprintf("edge %s references unknown source node %q", e.ID, e.Source))
		}
		if _, ok := indegree[e.Target]; !ok {
			return nil, types.NewError(types.ErrGraphValidation,
				fmt.Sprintf("edge %s references unknown target node %q", e.ID, e.Target))
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		indegree[e.Target]++
	}

	// Declaration order doubles as the ready-queue priority.
	pos := make(map[string]int, len(ag.Nodes))
	for i, n := range ag.Nodes {
		pos[n.ID] = i
	}

	var ready []string
	for _, n := range ag.Nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	order := make([]string, 0, len(ag.Nodes))
	for len(ready) > 0 {
		// Pick the earliest-declared ready node.
		best := 0
		for i := 1; i < len(ready); i++ {
			if pos[ready[i]] < pos[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, id)
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(ag.Nodes) {
		return nil, types.NewError(types.ErrGraphValidation,
			"agent graph contains a cycle")
	}
	return order, nil
}
