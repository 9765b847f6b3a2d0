package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/automateai/agentrun/types"
)

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = types.NewError(types.ErrValidation, "job not found")

// Store persists jobs. Implementations must be safe for concurrent use.
type Store interface {
	// Save writes a new job. Saving an existing ID is an error.
	Save(ctx context.Context, job *Job) error
	// Get returns the job or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// Update overwrites an existing job.
	Update(ctx context.Context, job *Job) error
	// Delete removes a job. Deleting a missing job is not an error.
	Delete(ctx context.Context, id string) error
	// List returns all jobs with the given status, oldest first.
	List(ctx context.Context, status Status) ([]*Job, error)
	// Counts returns the number of jobs per status.
	Counts(ctx context.Context) (map[Status]int, error)
}

// MemoryStore is the in-process Store used for tests and single-node
// deployments without Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return types.NewError(types.ErrInternal, fmt.Sprintf("job %s already exists", job.ID))
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, status Status) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Job
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, cloneJob(job))
		}
	}
	sortJobsByCreation(out)
	return out, nil
}

func (s *MemoryStore) Counts(_ context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func cloneJob(j *Job) *Job {
	cp := *j
	return &cp
}

func sortJobsByCreation(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// olderThan reports whether the job finished before the cutoff.
func olderThan(job *Job, cutoff time.Time) bool {
	ref := job.FinishedAt
	if ref.IsZero() {
		ref = job.CreatedAt
	}
	return ref.Before(cutoff)
}
