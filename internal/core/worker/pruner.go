package worker

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPruner deletes journaled attempts started before a threshold.
type AttemptPruner interface {
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// Pruner deletes old attempts based on retention policy.
type Pruner struct {
	retention time.Duration
	store     AttemptPruner
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker. A nil logger uses slog.Default().
func NewPruner(retention time.Duration, store AttemptPruner, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		retention: retention,
		store:     store,
		log:       log.With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval is how often the pruner runs: a tenth of the retention,
// clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)

	n, err := p.store.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune attempts", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("Pruned attempts", "deleted", n, "before", threshold.Format(time.RFC3339))
	}
}
