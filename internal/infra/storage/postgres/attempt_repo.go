package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/metrics"
)

const recordTimeout = 2 * time.Second

// AttemptRepo stores request attempts in PostgreSQL.
type AttemptRepo struct {
	db  *DB
	log *slog.Logger
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB, log *slog.Logger) *AttemptRepo {
	if log == nil {
		log = slog.Default()
	}
	return &AttemptRepo{db: db, log: log.With("component", "postgres_journal")}
}

// Insert stores one attempt. Re-inserting the same execution and sequence is a no-op.
func (r *AttemptRepo) Insert(ctx context.Context, a domain.Attempt) error {
	query := `
		INSERT INTO failover_attempts
			(execution_id, seq, interface, outcome, kind, error_msg, method, url, started_at, latency_ns)
		VALUES
			(:execution_id, :seq, :interface, :outcome, :kind, :error_msg, :method, :url, :started_at, :latency_ns)
		ON CONFLICT (execution_id, seq) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// Record inserts a, logging instead of returning failures.
func (r *AttemptRepo) Record(ctx context.Context, a domain.Attempt) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := r.Insert(ctx, a); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("postgres").Inc()
		r.log.Warn("Failed to journal attempt", "execution_id", a.ExecutionID, "error", err)
	}
}

// ListByExecution returns the attempts of one execution in order.
func (r *AttemptRepo) ListByExecution(ctx context.Context, executionID string) ([]domain.Attempt, error) {
	query := `
		SELECT execution_id, seq, interface, outcome, kind, error_msg, method, url, started_at, latency_ns
		FROM failover_attempts
		WHERE execution_id = $1
		ORDER BY seq ASC
	`
	var attempts []domain.Attempt
	if err := r.db.SelectContext(ctx, &attempts, query, executionID); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// Recent returns up to limit attempts, newest first.
func (r *AttemptRepo) Recent(ctx context.Context, limit int) ([]domain.Attempt, error) {
	query := `
		SELECT execution_id, seq, interface, outcome, kind, error_msg, method, url, started_at, latency_ns
		FROM failover_attempts
		ORDER BY started_at DESC, seq DESC
		LIMIT $1
	`
	var attempts []domain.Attempt
	if err := r.db.SelectContext(ctx, &attempts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent attempts: %w", err)
	}
	return attempts, nil
}

// DeleteOlderThan removes attempts started before threshold.
func (r *AttemptRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failover_attempts WHERE started_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attempts: %w", err)
	}
	return res.RowsAffected()
}
