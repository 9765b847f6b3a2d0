package types

import "encoding/json"

// NodeKind selects the executor for a node. Unknown values are skipped at
// execution time rather than failing the run.
type NodeKind string

const (
	NodeKindInput  NodeKind = "input"
	NodeKindAI     NodeKind = "ai"
	NodeKindLogic  NodeKind = "logic"
	NodeKindAPI    NodeKind = "api"
	NodeKindOutput NodeKind = "output"
)

// Known reports whether the kind maps to a built-in executor.
func (k NodeKind) Known() bool {
	switch k {
	case NodeKindInput, NodeKindAI, NodeKindLogic, NodeKindAPI, NodeKindOutput:
		return true
	}
	return false
}

// NodeData holds the kind discriminator plus the kind-specific configuration a
// visual builder attaches to a node. Fields irrelevant to a kind are left zero.
type NodeData struct {
	NodeType NodeKind `json:"nodeType"`
	Label    string   `json:"label,omitempty"`

	// input
	InputSchema *JSONSchema    `json:"inputSchema,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty"`

	// ai
	Prompt      string  `json:"prompt,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`

	// logic
	Condition string `json:"condition,omitempty"`

	// api
	APIEndpoint string            `json:"apiEndpoint,omitempty"`
	APIMethod   string            `json:"apiMethod,omitempty"`
	APIHeaders  map[string]string `json:"apiHeaders,omitempty"`
	APIBody     json.RawMessage   `json:"apiBody,omitempty"`

	// output
	OutputSchema *JSONSchema `json:"outputSchema,omitempty"`
}

// AgentNode is one step in an agent graph.
type AgentNode struct {
	ID   string   `json:"id"`
	Type string   `json:"type"` // always "customNode" from the canvas
	Data NodeData `json:"data"`
}

// AgentEdge is a directed dependency: Target consumes Source's output.
// SourceHandle carries the branch label ("true"/"false") on edges leaving a
// logic node; an empty handle means the edge is unconditional.
type AgentEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Agent is a named graph of nodes and edges representing one automatable
// workflow. It is owned by the caller and immutable during a single run.
type Agent struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Nodes []AgentNode `json:"nodes"`
	Edges []AgentEdge `json:"edges"`
}

// Node returns the node with the given id, if present.
func (a *Agent) Node(id string) (*AgentNode, bool) {
	for i := range a.Nodes {
		if a.Nodes[i].ID == id {
			return &a.Nodes[i], true
		}
	}
	return nil, false
}
