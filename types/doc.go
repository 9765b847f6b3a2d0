// Package types defines the data model shared by the execution core: the
// agent graph (Agent, AgentNode, AgentEdge), run results, the structural
// JSON-schema subset, and the structured Error carried across every package.
package types
