// Package engine executes agent graphs. It orders nodes with a deterministic
// topological sort, dispatches each node to a kind-specific executor, gates
// edges on logic-node branch labels, and survives individual node failures by
// skipping only the subgraph that depends on them.
package engine
