package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automateai/agentrun/connector"
	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/types"
)

const defaultExecutionTimeout = 5 * time.Minute

// Options tunes a single execution.
type Options struct {
	// UserID tags log lines and results for multi-tenant deployments.
	UserID string
	// Timeout bounds the whole run. Zero means defaultExecutionTimeout.
	Timeout time.Duration
}

// NodeMetrics receives per-node timing. A nil recorder disables publication.
type NodeMetrics interface {
	RecordNode(nodeType, status string, duration time.Duration)
}

// Engine walks agent graphs in dependency order, dispatching each node to
// its kind's executor and threading an accumulated context map through the
// run. It is safe for concurrent executions.
type Engine struct {
	executors map[types.NodeKind]NodeExecutor
	metrics   NodeMetrics
	logger    *zap.Logger
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithMetrics publishes per-node timing to the given recorder.
func WithMetrics(m NodeMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// New wires an Engine against the provider manager and connector registry.
func New(manager *llm.Manager, registry *connector.Registry, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "engine"))
	e := &Engine{
		executors: map[types.NodeKind]NodeExecutor{
			types.NodeKindInput:  inputExecutor{},
			types.NodeKindAI:     newAIExecutor(manager, logger),
			types.NodeKindLogic:  logicExecutor{},
			types.NodeKindAPI:    &apiExecutor{registry: registry},
			types.NodeKindOutput: outputExecutor{},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) recordNode(kind types.NodeKind, status types.NodeStatus, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordNode(string(kind), string(status), d)
	}
}

// Execute runs ag against input and returns a Result covering every node.
// Node failures do not abort the run: descendants reachable only through a
// failed or skipped node are skipped, independent branches continue, and
// overall success requires every output node to have completed.
func (e *Engine) Execute(ctx context.Context, ag *types.Agent, input map[string]any, opts Options) (*types.Result, error) {
	start := time.Now()
	executionID := "exec_" + uuid.NewString()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := e.logger.With(
		zap.String("execution_id", executionID),
		zap.String("agent_id", ag.ID),
	)
	if opts.UserID != "" {
		log = log.With(zap.String("user_id", opts.UserID))
	}

	if err := ValidateGraph(ag); err != nil {
		return nil, err
	}
	order, err := TopologicalOrder(ag)
	if err != nil {
		return nil, err
	}

	log.Info("execution started",
		zap.Int("nodes", len(ag.Nodes)),
		zap.Int("edges", len(ag.Edges)))

	run := &runState{
		agent:       ag,
		context:     cloneContext(input),
		nodeResults: make(map[string]types.NodeResult, len(ag.Nodes)),
		blocked:     make(map[string]bool),
		branchCut:   make(map[string]bool),
		branchTaken: make(map[string]string),
	}

	for _, nodeID := range order {
		node, _ := ag.Node(nodeID)

		select {
		case <-ctx.Done():
			return e.finish(log, run, executionID, start,
				types.NewError(types.ErrInternal, "execution timed out").WithCause(ctx.Err())), nil
		default:
		}

		switch run.blockCause(nodeID) {
		case blockFailure:
			run.nodeResults[nodeID] = types.NodeResult{Status: types.NodeSkipped}
			run.blocked[nodeID] = true
			continue
		case blockBranch:
			// Descendants of a branch that was not taken are not part of the
			// run at all and leave no node result behind.
			run.blocked[nodeID] = true
			run.branchCut[nodeID] = true
			continue
		}

		exec, ok := e.executors[node.Data.NodeType]
		if !ok {
			// Unknown node kinds pass through without contributing output;
			// their descendants still run.
			log.Warn("skipping unknown node type",
				zap.String("node_id", nodeID),
				zap.String("node_type", string(node.Data.NodeType)))
			run.nodeResults[nodeID] = types.NodeResult{Status: types.NodeSkipped}
			continue
		}

		nodeStart := time.Now()
		out, err := exec.Execute(ctx, node, run.context)
		elapsed := time.Since(nodeStart)
		duration := elapsed.Milliseconds()

		if err != nil {
			e.recordNode(node.Data.NodeType, types.NodeFailed, elapsed)
			log.Warn("node failed",
				zap.String("node_id", nodeID),
				zap.String("node_type", string(node.Data.NodeType)),
				zap.Int64("duration_ms", duration),
				zap.Error(err))
			run.nodeResults[nodeID] = types.NodeResult{
				Status:     types.NodeFailed,
				Error:      err.Error(),
				DurationMs: duration,
			}
			run.blocked[nodeID] = true
			continue
		}

		if node.Data.NodeType == types.NodeKindLogic {
			if branch, ok := out["branch"].(string); ok {
				run.branchTaken[nodeID] = branch
			}
		}
		e.recordNode(node.Data.NodeType, types.NodeCompleted, elapsed)
		run.merge(nodeID, out)
		run.nodeResults[nodeID] = types.NodeResult{
			Status:     types.NodeCompleted,
			Output:     out,
			DurationMs: duration,
		}
		log.Debug("node completed",
			zap.String("node_id", nodeID),
			zap.String("node_type", string(node.Data.NodeType)),
			zap.Int64("duration_ms", duration))
	}

	return e.finish(log, run, executionID, start, nil), nil
}

// finish assembles the Result from the run state. runErr, when set, is a
// whole-run failure (timeout) that overrides per-node accounting.
func (e *Engine) finish(log *zap.Logger, run *runState, executionID string, start time.Time, runErr error) *types.Result {
	res := &types.Result{
		ExecutionID:   executionID,
		ExecutionTime: time.Since(start).Milliseconds(),
		NodeResults:   run.nodeResults,
	}

	if runErr != nil {
		res.Success = false
		res.Error = runErr.Error()
		log.Error("execution aborted",
			zap.Int64("execution_time_ms", res.ExecutionTime),
			zap.Error(runErr))
		return res
	}

	res.Success = true
	sawOutput := false
	for _, n := range run.agent.Nodes {
		if n.Data.NodeType != types.NodeKindOutput || run.branchCut[n.ID] {
			continue
		}
		sawOutput = true
		nr := run.nodeResults[n.ID]
		if nr.Status != types.NodeCompleted {
			res.Success = false
			if nr.Error != "" && res.Error == "" {
				res.Error = nr.Error
			}
			continue
		}
		if out, ok := nr.Output.(map[string]any); ok {
			res.Output = out
		}
	}
	if !sawOutput {
		// No output node: the run succeeds when nothing failed and the final
		// context is the output.
		for _, nr := range run.nodeResults {
			if nr.Status == types.NodeFailed {
				res.Success = false
				if res.Error == "" {
					res.Error = nr.Error
				}
			}
		}
		if res.Success {
			res.Output = run.context
		}
	}
	if !res.Success && res.Error == "" {
		// An output node was cut off by an upstream failure. Surface the
		// error of the node that actually failed.
		for _, n := range run.agent.Nodes {
			if nr, ok := run.nodeResults[n.ID]; ok && nr.Status == types.NodeFailed && nr.Error != "" {
				res.Error = nr.Error
				break
			}
		}
	}
	if !res.Success && res.Error == "" {
		res.Error = "execution did not reach an output node"
	}

	log.Info("execution finished",
		zap.Bool("success", res.Success),
		zap.Int64("execution_time_ms", res.ExecutionTime))
	return res
}

// ValidateGraph rejects structurally broken agents before any node runs.
func ValidateGraph(ag *types.Agent) error {
	if ag == nil || len(ag.Nodes) == 0 {
		return types.NewError(types.ErrGraphValidation, "agent graph has no nodes")
	}
	seen := make(map[string]bool, len(ag.Nodes))
	for _, n := range ag.Nodes {
		if n.ID == "" {
			return types.NewError(types.ErrGraphValidation, "agent graph contains a node without an id")
		}
		if seen[n.ID] {
			return types.NewError(types.ErrGraphValidation,
				fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}
	for _, e := range ag.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return types.NewError(types.ErrGraphValidation,
				fmt.Sprintf("edge %s connects unknown nodes", e.ID))
		}
		if e.Source == e.Target {
			return types.NewError(types.ErrGraphValidation,
				fmt.Sprintf("edge %s is a self loop on %q", e.ID, e.Source))
		}
	}
	return nil
}

type runState struct {
	agent       *types.Agent
	context     map[string]any
	nodeResults map[string]types.NodeResult
	// blocked marks nodes that did not run: failed nodes and anything
	// reachable only through them or through an inactive branch.
	blocked map[string]bool
	// branchCut marks blocked nodes whose only cause is a logic branch that
	// went the other way. They get no node result.
	branchCut map[string]bool
	// branchTaken records the edge label each logic node activated.
	branchTaken map[string]string
}

type blockCause int

const (
	blockNone blockCause = iota
	// blockFailure: some path into the node was cut by a failed or
	// failure-skipped ancestor.
	blockFailure
	// blockBranch: every path into the node was cut by inactive logic
	// branches alone.
	blockBranch
)

// blockCause reports whether every viable path into nodeID is cut off, and by
// what. Root nodes are never blocked.
func (r *runState) blockCause(nodeID string) blockCause {
	incoming := 0
	live := 0
	sawFailure := false
	for _, e := range r.agent.Edges {
		if e.Target != nodeID {
			continue
		}
		incoming++
		if r.blocked[e.Source] {
			if !r.branchCut[e.Source] {
				sawFailure = true
			}
			continue
		}
		if branch, ok := r.branchTaken[e.Source]; ok && e.SourceHandle != "" && e.SourceHandle != branch {
			continue
		}
		live++
	}
	if incoming == 0 || live > 0 {
		return blockNone
	}
	if sawFailure {
		return blockFailure
	}
	return blockBranch
}

// merge folds node output into the shared context. Outputs land both at the
// top level (later nodes win on key conflicts) and under the node id, so
// templates can address either form.
func (r *runState) merge(nodeID string, out map[string]any) {
	for k, v := range out {
		r.context[k] = v
	}
	r.context[nodeID] = out
}

func cloneContext(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
