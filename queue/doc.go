// Package queue schedules asynchronous agent executions on a fixed worker
// pool. Jobs move strictly forward through waiting, active and a terminal
// status, with delayed starts, bounded retries with exponential backoff,
// pause/resume of intake and cleanup of old terminal jobs. Persistence is
// pluggable: in-memory for single-node use, Redis for shared deployments.
package queue
