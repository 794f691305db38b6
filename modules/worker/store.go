package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"video-generation-gateway/modules/common/model"
)

const (
	// QueueKey holds pending job ids; producers LPUSH, workers BRPOP.
	QueueKey     = "jobs:video"
	jobKeyPrefix = "video:job:"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// Store keeps job state as JSON strings with a TTL next to the job queue.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore - Job 저장소 생성
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

// Enqueue stores the job and pushes its id in one transaction.
// It returns the queue length after the push.
func (s *Store) Enqueue(ctx context.Context, job *Job) (int64, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job: %w", err)
	}

	var push *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.JobID), data, s.ttl)
		push = pipe.LPush(ctx, QueueKey, job.JobID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return push.Val(), nil
}

// Requeue stores the job back as pending and puts its id at the consuming end of the queue.
func (s *Store) Requeue(ctx context.Context, job *Job) error {
	job.Status = model.StatusPending
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.JobID), data, s.ttl)
		pipe.RPush(ctx, QueueKey, job.JobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", job.JobID, err)
	}
	return nil
}

// Get - Job 조회
func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", jobID, err)
	}
	return &job, nil
}

// Save overwrites the job state and refreshes its TTL.
func (s *Store) Save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.JobID, err)
	}
	return nil
}

// Next blocks up to timeout for the next job id. An empty id means the wait timed out.
func (s *Store) Next(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := s.rdb.BRPop(ctx, timeout, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	// result[0]은 큐 이름, result[1]이 job_id
	return result[1], nil
}
