package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/automateai/agentrun/types"
)

// RedisStore persists jobs in Redis so queue state survives restarts and can
// be shared across workers. Job payloads are JSON values keyed by ID with a
// sorted-set index per status, scored by creation time.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig configures the Redis connection for the job store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrInternal, "failed to connect to Redis").WithCause(err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "agentrun:"
	}
	return &RedisStore{client: client, keyPrefix: prefix + "job:"}, nil
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "agentrun:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "job:"}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) jobKey(id string) string {
	return s.keyPrefix + "data:" + id
}

func (s *RedisStore) statusKey(status Status) string {
	return s.keyPrefix + "status:" + string(status)
}

func (s *RedisStore) Save(ctx context.Context, job *Job) error {
	exists, err := s.client.Exists(ctx, s.jobKey(job.ID)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return types.NewError(types.ErrInternal, fmt.Sprintf("job %s already exists", job.ID))
	}
	return s.write(ctx, job, "")
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, types.NewError(types.ErrInternal, "corrupt job payload").WithCause(err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *Job) error {
	old, err := s.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	oldStatus := Status("")
	if old.Status != job.Status {
		oldStatus = old.Status
	}
	return s.write(ctx, job, oldStatus)
}

// write stores the payload and maintains the status indexes. oldStatus, when
// non-empty, is removed from its index in the same pipeline.
func (s *RedisStore) write(ctx context.Context, job *Job, oldStatus Status) error {
	data, err := json.Marshal(job)
	if err != nil {
		return types.NewError(types.ErrInternal, "failed to marshal job").WithCause(err)
	}

	score := float64(job.CreatedAt.UnixNano())
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.jobKey(job.ID), data, 0)
	if oldStatus != "" {
		pipe.ZRem(ctx, s.statusKey(oldStatus), job.ID)
	}
	pipe.ZAdd(ctx, s.statusKey(job.Status), redis.Z{Score: score, Member: job.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err == ErrJobNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.jobKey(id))
	pipe.ZRem(ctx, s.statusKey(job.Status), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context, status Status) ([]*Job, error) {
	ids, err := s.client.ZRange(ctx, s.statusKey(status), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			// Index entries can outlive payloads after a partial delete.
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisStore) Counts(ctx context.Context) (map[Status]int, error) {
	statuses := []Status{
		StatusWaiting, StatusDelayed, StatusPaused,
		StatusActive, StatusCompleted, StatusFailed,
	}
	counts := make(map[Status]int, len(statuses))
	for _, status := range statuses {
		n, err := s.client.ZCard(ctx, s.statusKey(status)).Result()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			counts[status] = int(n)
		}
	}
	return counts, nil
}

var _ Store = (*RedisStore)(nil)
