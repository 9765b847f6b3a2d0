package types

// NodeStatus describes the outcome of a single node within a run.
type NodeStatus string

const (
	// NodeCompleted means the executor produced an output.
	NodeCompleted NodeStatus = "completed"
	// NodeFailed means the executor returned an error; the failure is recorded
	// and descendants reachable only through this node are skipped.
	NodeFailed NodeStatus = "failed"
	// NodeSkipped means the node did not execute: unknown kind, inactive
	// branch, or downstream of a failure.
	NodeSkipped NodeStatus = "skipped"
)

// NodeResult captures per-node timing and outcome for observability, kept even
// on partial failure.
type NodeResult struct {
	Status     NodeStatus `json:"status"`
	Output     any        `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// Result is the outcome of one engine run.
type Result struct {
	ExecutionID   string                `json:"executionId"`
	Success       bool                  `json:"success"`
	Output        any                   `json:"output,omitempty"`
	Error         string                `json:"error,omitempty"`
	ExecutionTime int64                 `json:"executionTime"` // wall clock, ms
	NodeResults   map[string]NodeResult `json:"nodeResults,omitempty"`
}
