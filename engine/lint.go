package engine

import (
	"fmt"

	"github.com/automateai/agentrun/types"
)

// Lint reports authoring-time problems that execution tolerates: unknown node
// kinds, missing input or output nodes, and orphan nodes nothing connects to.
// It assumes the graph already passes ValidateGraph and never blocks a run.
func Lint(ag *types.Agent) []string {
	if ag == nil {
		return nil
	}

	var warnings []string

	connected := make(map[string]bool, len(ag.Nodes))
	for _, e := range ag.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	inputs, outputs := 0, 0
	for _, n := range ag.Nodes {
		switch n.Data.NodeType {
		case types.NodeKindInput:
			inputs++
		case types.NodeKindOutput:
			outputs++
		}
		if !n.Data.NodeType.Known() {
			warnings = append(warnings,
				fmt.Sprintf("node %q has unknown type %q and will be skipped", n.ID, n.Data.NodeType))
		}
		if len(ag.Nodes) > 1 && !connected[n.ID] {
			warnings = append(warnings,
				fmt.Sprintf("node %q is not connected to any other node", n.ID))
		}
	}

	if inputs == 0 {
		warnings = append(warnings, "agent has no input node")
	}
	if inputs > 1 {
		warnings = append(warnings, fmt.Sprintf("agent has %d input nodes, expected one", inputs))
	}
	if outputs == 0 {
		warnings = append(warnings, "agent has no output node, the final context becomes the result")
	}

	return warnings
}
