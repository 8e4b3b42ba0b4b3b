package failover

import (
	"context"
	"log/slog"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// Journal receives one record per attempt, before the executor decides
// whether to return or advance. Implementations must not block for long
// and must not fail the request: journal errors are theirs to log.
type Journal interface {
	Record(ctx context.Context, a domain.Attempt)
}

// JournalFunc adapts a function to Journal.
type JournalFunc func(ctx context.Context, a domain.Attempt)

func (f JournalFunc) Record(ctx context.Context, a domain.Attempt) { f(ctx, a) }

// LogJournal writes attempts to a structured logger. Successes log at debug,
// everything else at warn.
type LogJournal struct {
	log *slog.Logger
}

func NewLogJournal(log *slog.Logger) *LogJournal {
	if log == nil {
		log = slog.Default()
	}
	return &LogJournal{log: log.With("component", "journal")}
}

func (j *LogJournal) Record(ctx context.Context, a domain.Attempt) {
	level := slog.LevelWarn
	if a.Outcome == domain.OutcomeSuccess {
		level = slog.LevelDebug
	}
	attrs := []any{
		"execution_id", a.ExecutionID,
		"seq", a.Seq,
		"interface", a.Interface,
		"outcome", a.Outcome,
		"method", a.Method,
		"url", a.URL,
		"latency", a.Latency,
	}
	if a.Error != "" {
		attrs = append(attrs, "kind", a.Kind, "error", a.Error)
	}
	j.log.Log(ctx, level, "Request attempt", attrs...)
}

// MultiJournal fans a record out to every journal in order.
type MultiJournal []Journal

func (m MultiJournal) Record(ctx context.Context, a domain.Attempt) {
	for _, j := range m {
		if j != nil {
			j.Record(ctx, a)
		}
	}
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, domain.Attempt) {}
