package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/metrics"
)

const (
	// DefaultMaxEntries caps the recent attempts list.
	DefaultMaxEntries = 1000

	executionTTL  = 24 * time.Hour
	recordTimeout = 2 * time.Second
	recentKey     = "failover:attempts"
)

func executionKey(id string) string {
	return fmt.Sprintf("failover:execution:%s", id)
}

// AttemptJournal stores attempts in Redis: one list per execution, expiring
// after a day, and one capped list of the most recent attempts overall.
type AttemptJournal struct {
	rdb        *redis.Client
	maxEntries int64
	log        *slog.Logger
}

// NewAttemptJournal creates a journal on client. maxEntries <= 0 uses DefaultMaxEntries.
func NewAttemptJournal(client *Client, maxEntries int, log *slog.Logger) *AttemptJournal {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if log == nil {
		log = slog.Default()
	}
	return &AttemptJournal{
		rdb:        client.rdb,
		maxEntries: int64(maxEntries),
		log:        log.With("component", "redis_journal"),
	}
}

// Append stores one attempt.
func (j *AttemptJournal) Append(ctx context.Context, a domain.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	key := executionKey(a.ExecutionID)
	_, err = j.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, executionTTL)
		pipe.LPush(ctx, recentKey, data)
		pipe.LTrim(ctx, recentKey, 0, j.maxEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// Record appends a, logging instead of returning failures.
func (j *AttemptJournal) Record(ctx context.Context, a domain.Attempt) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := j.Append(ctx, a); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("redis").Inc()
		j.log.Warn("Failed to journal attempt", "execution_id", a.ExecutionID, "error", err)
	}
}

// Recent returns up to n attempts, newest first.
func (j *AttemptJournal) Recent(ctx context.Context, n int) ([]domain.Attempt, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := j.rdb.LRange(ctx, recentKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return decodeAttempts(vals)
}

// Execution returns the attempts of one execution in order. An unknown or
// expired execution yields an empty list.
func (j *AttemptJournal) Execution(ctx context.Context, id string) ([]domain.Attempt, error) {
	vals, err := j.rdb.LRange(ctx, executionKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return decodeAttempts(vals)
}

func decodeAttempts(vals []string) ([]domain.Attempt, error) {
	out := make([]domain.Attempt, 0, len(vals))
	for _, v := range vals {
		var a domain.Attempt
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
