package domain

import "time"

// AttemptOutcome is what the executor decided after one attempt.
type AttemptOutcome string

const (
	OutcomeSuccess  AttemptOutcome = "success"
	OutcomeFailover AttemptOutcome = "failover"
	OutcomeAbort    AttemptOutcome = "abort"
	// OutcomeExhausted marks a retryable failure on the last candidate.
	OutcomeExhausted AttemptOutcome = "exhausted"
)

// Attempt records one try of a request on one interface
type Attempt struct {
	ExecutionID string         `json:"execution_id" db:"execution_id"`
	Seq         int            `json:"seq"          db:"seq"`
	Interface   string         `json:"interface"    db:"interface"`
	Outcome     AttemptOutcome `json:"outcome"      db:"outcome"`
	Kind        string         `json:"kind"         db:"kind"`
	Error       string         `json:"error"        db:"error_msg"`
	Method      string         `json:"method"       db:"method"`
	URL         string         `json:"url"          db:"url"`
	StartedAt   time.Time      `json:"started_at"   db:"started_at"`
	Latency     time.Duration  `json:"latency"      db:"latency_ns"`
}
