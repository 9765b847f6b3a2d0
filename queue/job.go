package queue

import (
	"time"

	"github.com/automateai/agentrun/types"
)

// Status is the lifecycle state of a queued execution. Transitions run
// strictly forward: waiting (or delayed/paused first) to active, then to
// completed or failed. Terminal states never change again.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusDelayed Status = "delayed"
	// StatusPaused is part of the persisted lifecycle for stores that park
	// individual jobs. This queue pauses intake as a whole, so its own
	// workers never write the status.
	StatusPaused    Status = "paused"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Cancelable reports whether a job in this status may still be removed.
// Active jobs run to completion; terminal jobs are history.
func (s Status) Cancelable() bool {
	return s == StatusWaiting || s == StatusDelayed
}

// validNext encodes the legal forward transitions.
var validNext = map[Status][]Status{
	StatusWaiting: {StatusActive, StatusPaused},
	StatusDelayed: {StatusWaiting},
	StatusPaused:  {StatusWaiting},
	StatusActive:  {StatusCompleted, StatusFailed, StatusWaiting}, // waiting = retry
}

// CanTransition reports whether from may legally become to.
func CanTransition(from, to Status) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one asynchronous agent execution tracked through the queue.
type Job struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`
	UserID  string `json:"userId,omitempty"`

	Agent *types.Agent   `json:"agent"`
	Input map[string]any `json:"input,omitempty"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`

	// Attempts counts executions so far; the job fails permanently once it
	// reaches MaxAttempts.
	Attempts    int `json:"attempts"`
	MaxAttempts int `json:"maxAttempts"`

	Result *types.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	RunAt      time.Time `json:"runAt,omitempty"` // earliest start for delayed jobs
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Stats is a point-in-time census of jobs by status.
type Stats struct {
	Waiting   int  `json:"waiting"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Delayed   int  `json:"delayed"`
	Paused    bool `json:"paused"`
}
