package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automateai/agentrun/engine"
	"github.com/automateai/agentrun/llm/retry"
	"github.com/automateai/agentrun/types"
)

const (
	// DefaultConcurrency is the worker pool size.
	DefaultConcurrency = 5
	// DefaultMaxAttempts bounds retries per job.
	DefaultMaxAttempts = 3

	progressValidated = 10
	progressExecuting = 50
	progressFinishing = 95
	progressDone      = 100
)

// Runner executes one agent run. The engine satisfies it; tests substitute
// their own.
type Runner interface {
	Execute(ctx context.Context, ag *types.Agent, input map[string]any, opts engine.Options) (*types.Result, error)
}

// Queue schedules agent executions onto a fixed worker pool with retries,
// delayed starts, pause/resume and periodic cleanup.
type Queue struct {
	store   Store
	runner  Runner
	logger  *zap.Logger
	backoff *retry.Policy

	concurrency int
	maxAttempts int
	jobs        chan string

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{} // closed while running
	timers   map[string]*time.Timer

	wg      sync.WaitGroup
	stopped chan struct{}
}

// Option customizes queue construction.
type Option func(*Queue)

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

// WithBackoff overrides the retry schedule for failed jobs.
func WithBackoff(policy *retry.Policy) Option {
	return func(q *Queue) {
		if policy != nil {
			q.backoff = policy
		}
	}
}

// WithMaxAttempts changes the default attempt budget for new jobs.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// New builds a queue over the given store and runner.
func New(store Store, runner Runner, logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	resumeCh := make(chan struct{})
	close(resumeCh)
	q := &Queue{
		store:  store,
		runner: runner,
		logger: logger.With(zap.String("component", "queue")),
		backoff: &retry.Policy{
			MaxRetries:   DefaultMaxAttempts,
			InitialDelay: 2 * time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2.0,
		},
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		jobs:        make(chan string, 256),
		resumeCh:    resumeCh,
		timers:      make(map[string]*time.Timer),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the worker pool. Workers exit when ctx is canceled or Stop
// is called.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.logger.Info("queue started", zap.Int("concurrency", q.concurrency))
}

// Stop signals workers to drain and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	close(q.stopped)
	q.mu.Lock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// EnqueueOptions tunes a single submission.
type EnqueueOptions struct {
	UserID string
	// Delay postpones the first execution attempt.
	Delay time.Duration
	// MaxAttempts overrides DefaultMaxAttempts when positive.
	MaxAttempts int
}

// Enqueue registers an agent execution and returns its job. With a delay the
// job starts in delayed status and is promoted when the delay elapses.
func (q *Queue) Enqueue(ctx context.Context, ag *types.Agent, input map[string]any, opts EnqueueOptions) (*Job, error) {
	if err := engine.ValidateGraph(ag); err != nil {
		return nil, err
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}

	now := time.Now()
	job := &Job{
		ID:          "job_" + uuid.NewString(),
		AgentID:     ag.ID,
		UserID:      opts.UserID,
		Agent:       ag,
		Input:       input,
		Status:      StatusWaiting,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
	}
	if opts.Delay > 0 {
		job.Status = StatusDelayed
		job.RunAt = now.Add(opts.Delay)
	}

	if err := q.store.Save(ctx, job); err != nil {
		return nil, err
	}

	q.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("agent_id", ag.ID),
		zap.String("status", string(job.Status)),
		zap.Duration("delay", opts.Delay))

	if opts.Delay > 0 {
		q.schedulePromotion(job.ID, opts.Delay)
	} else {
		q.submit(job.ID)
	}
	return cloneJob(job), nil
}

// Get returns the current state of a job.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	return q.store.Get(ctx, id)
}

// Cancel removes a job that has not started. Active and finished jobs cannot
// be canceled.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.Cancelable() {
		return types.NewError(types.ErrValidation,
			fmt.Sprintf("job %s is %s and cannot be canceled", id, job.Status))
	}

	q.mu.Lock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	if err := q.store.Delete(ctx, id); err != nil {
		return err
	}
	q.logger.Info("job canceled", zap.String("job_id", id))
	return nil
}

// Stats reports the job census and whether intake is paused.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	counts, err := q.store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	paused := q.paused
	q.mu.Unlock()
	return &Stats{
		Waiting:   counts[StatusWaiting],
		Active:    counts[StatusActive],
		Completed: counts[StatusCompleted],
		Failed:    counts[StatusFailed],
		Delayed:   counts[StatusDelayed],
		Paused:    paused,
	}, nil
}

// Pause stops workers from picking up new jobs. In-flight jobs finish.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.paused {
		return
	}
	q.paused = true
	q.resumeCh = make(chan struct{})
	q.logger.Info("queue paused")
}

// Resume reopens intake after a Pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.paused {
		return
	}
	q.paused = false
	close(q.resumeCh)
	q.logger.Info("queue resumed")
}

// Clean deletes terminal jobs that finished before the grace period and
// returns how many were removed.
func (q *Queue) Clean(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)
	removed := 0
	for _, status := range []Status{StatusCompleted, StatusFailed} {
		jobs, err := q.store.List(ctx, status)
		if err != nil {
			return removed, err
		}
		for _, job := range jobs {
			if !olderThan(job, cutoff) {
				continue
			}
			if err := q.store.Delete(ctx, job.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	q.logger.Info("queue cleaned", zap.Int("removed", removed), zap.Duration("grace", grace))
	return removed, nil
}

func (q *Queue) submit(id string) {
	select {
	case q.jobs <- id:
	case <-q.stopped:
	}
}

func (q *Queue) schedulePromotion(id string, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timers[id] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, id)
		q.mu.Unlock()
		q.promote(id)
	})
}

// promote moves a delayed job to waiting and hands it to the pool.
func (q *Queue) promote(id string) {
	ctx := context.Background()
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return // canceled while delayed
	}
	if job.Status != StatusDelayed {
		return
	}
	job.Status = StatusWaiting
	if err := q.store.Update(ctx, job); err != nil {
		q.logger.Error("failed to promote delayed job",
			zap.String("job_id", id), zap.Error(err))
		return
	}
	q.submit(id)
}

func (q *Queue) worker(ctx context.Context, n int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker", n))
	for {
		q.mu.Lock()
		resumeCh := q.resumeCh
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-q.stopped:
			return
		case <-resumeCh:
		}

		select {
		case <-ctx.Done():
			return
		case <-q.stopped:
			return
		case id := <-q.jobs:
			q.process(ctx, log, id)
		}
	}
}

// process runs one attempt of a job and either finishes it or schedules the
// next attempt with exponential backoff.
func (q *Queue) process(ctx context.Context, log *zap.Logger, id string) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return // canceled while waiting
	}
	if job.Status != StatusWaiting {
		return
	}

	job.Status = StatusActive
	job.Attempts++
	job.Progress = progressValidated
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	if err := q.store.Update(ctx, job); err != nil {
		log.Error("failed to mark job active", zap.String("job_id", id), zap.Error(err))
		return
	}

	log.Info("job started",
		zap.String("job_id", id),
		zap.String("agent_id", job.AgentID),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts))

	job.Progress = progressExecuting
	_ = q.store.Update(ctx, job)

	result, execErr := q.runner.Execute(ctx, job.Agent, job.Input, engine.Options{UserID: job.UserID})

	job.Progress = progressFinishing
	_ = q.store.Update(ctx, job)

	if execErr == nil && result != nil && result.Success {
		job.Status = StatusCompleted
		job.Progress = progressDone
		job.Result = result
		job.Error = ""
		job.FinishedAt = time.Now()
		if err := q.store.Update(ctx, job); err != nil {
			log.Error("failed to persist completed job", zap.String("job_id", id), zap.Error(err))
		}
		log.Info("job completed",
			zap.String("job_id", id),
			zap.Int64("execution_time_ms", result.ExecutionTime))
		return
	}

	errMsg := "execution failed"
	if execErr != nil {
		errMsg = execErr.Error()
	} else if result != nil && result.Error != "" {
		errMsg = result.Error
	}
	job.Result = result
	job.Error = errMsg

	if job.Attempts < job.MaxAttempts {
		delay := retry.Delay(q.backoff, job.Attempts)
		job.Status = StatusWaiting
		if err := q.store.Update(ctx, job); err != nil {
			log.Error("failed to requeue job", zap.String("job_id", id), zap.Error(err))
			return
		}
		log.Warn("job attempt failed, retrying",
			zap.String("job_id", id),
			zap.Int("attempt", job.Attempts),
			zap.Duration("retry_in", delay),
			zap.String("error", errMsg))
		q.mu.Lock()
		q.timers[id] = time.AfterFunc(delay, func() {
			q.mu.Lock()
			delete(q.timers, id)
			q.mu.Unlock()
			q.submit(id)
		})
		q.mu.Unlock()
		return
	}

	job.Status = StatusFailed
	job.FinishedAt = time.Now()
	if err := q.store.Update(ctx, job); err != nil {
		log.Error("failed to persist failed job", zap.String("job_id", id), zap.Error(err))
	}
	log.Error("job failed permanently",
		zap.String("job_id", id),
		zap.Int("attempts", job.Attempts),
		zap.String("error", errMsg))
}
