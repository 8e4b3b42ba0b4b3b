package failover

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/metrics"
	"github.com/vietddude/netfailover/internal/netif"
)

// State is the position of one Execute call in its state machine.
type State string

const (
	StateSelecting          State = "SELECTING"
	StateAttempting         State = "ATTEMPTING"
	StateSucceeded          State = "SUCCEEDED"
	StateFailedNonRetryable State = "FAILED_NONRETRYABLE"
	StateAdvancing          State = "ADVANCING"
	StateExhausted          State = "EXHAUSTED"
)

// Candidates supplies the ordered interfaces to try.
type Candidates interface {
	AvailableInterfaces(resolver netif.Resolver) []domain.Handle
}

// Dispatcher performs one HTTP exchange bound to one interface.
type Dispatcher interface {
	ExecuteOn(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error)

func (f DispatcherFunc) ExecuteOn(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error) {
	return f(ctx, h, req)
}

// Executor runs one logical request as a sequence of per-interface attempts.
type Executor struct {
	candidates  Candidates
	dispatcher  Dispatcher
	resolver    netif.Resolver
	journal     Journal
	classifiers ClassifierGroup
	log         *slog.Logger
	newID       func() string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithResolver orders candidates with r. Without one, declaration order is kept.
func WithResolver(r netif.Resolver) ExecutorOption {
	return func(e *Executor) { e.resolver = r }
}

func WithJournal(j Journal) ExecutorOption {
	return func(e *Executor) {
		if j != nil {
			e.journal = j
		}
	}
}

func WithLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClassifiers replaces the classification policy.
func WithClassifiers(g ClassifierGroup) ExecutorOption {
	return func(e *Executor) { e.classifiers = g }
}

// NewExecutor creates an executor over the given candidates and dispatcher.
func NewExecutor(candidates Candidates, dispatcher Dispatcher, opts ...ExecutorOption) *Executor {
	e := &Executor{
		candidates:  candidates,
		dispatcher:  dispatcher,
		journal:     nopJournal{},
		classifiers: Classifiers,
		log:         slog.Default(),
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "executor")
	return e
}

// Execute tries req on each available interface in priority order until one
// returns a response. Any HTTP status counts as a response.
//
// It returns ErrNoInterfaces when nothing is available, the first
// non-retryable error verbatim, or an *ExhaustedError wrapping the last
// retryable error when every candidate failed.
func (e *Executor) Execute(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	execID := e.newID()
	log := e.log.With("execution_id", execID, "method", req.Method, "url", req.URL.Redacted())

	log.Debug("Selecting interfaces", "state", StateSelecting)
	candidates := e.candidates.AvailableInterfaces(e.resolver)
	if len(candidates) == 0 {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		log.Warn("No network interfaces available")
		metrics.ExecutionsTotal.WithLabelValues("no_interfaces").Inc()
		return nil, ErrNoInterfaces
	}

	body, err := newBodySource(req, len(candidates) > 1)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	var lastErr error
	for i, h := range candidates {
		attemptReq, err := body.request(ctx, req, i)
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}

		log.Debug("Executing request on interface",
			"state", StateAttempting, "interface", h, "attempt", i+1, "candidates", len(candidates))

		start := time.Now()
		resp, err := e.dispatcher.ExecuteOn(ctx, h, attemptReq)
		latency := time.Since(start)
		if err == nil && resp == nil {
			err = ErrNilResponse
		}

		a := domain.Attempt{
			ExecutionID: execID,
			Seq:         i + 1,
			Interface:   h.String(),
			Method:      req.Method,
			URL:         req.URL.Redacted(),
			StartedAt:   start,
			Latency:     latency,
		}

		if err == nil {
			a.Outcome = domain.OutcomeSuccess
			e.record(ctx, a, KindNone)
			metrics.ExecutionsTotal.WithLabelValues("succeeded").Inc()
			log.Debug("Request succeeded", "state", StateSucceeded, "interface", h, "status", resp.StatusCode)
			return resp, nil
		}

		kind := e.classifiers.Kind(err)
		if ctx.Err() != nil {
			kind = KindCanceled
		}
		a.Kind = kind.String()
		a.Error = err.Error()

		if !kind.Retryable() {
			a.Outcome = domain.OutcomeAbort
			e.record(ctx, a, kind)
			metrics.ExecutionsTotal.WithLabelValues("failed_nonretryable").Inc()
			log.Debug("Request failed, not attempting failover",
				"state", StateFailedNonRetryable, "interface", h, "kind", kind, "error", err)
			return nil, err
		}

		lastErr = err
		if i == len(candidates)-1 {
			a.Outcome = domain.OutcomeExhausted
			e.record(ctx, a, kind)
			break
		}

		a.Outcome = domain.OutcomeFailover
		e.record(ctx, a, kind)
		metrics.FailoversTotal.Inc()
		log.Info("Request failed, failing over to next interface",
			"state", StateAdvancing, "interface", h, "next", candidates[i+1], "kind", kind, "error", err)
	}

	metrics.ExecutionsTotal.WithLabelValues("exhausted").Inc()
	log.Warn("No network interfaces left to try", "state", StateExhausted, "attempts", len(candidates))
	return nil, &ExhaustedError{Attempts: len(candidates), Last: lastErr}
}

// record reports the attempt before the executor acts on it. The journal gets
// a context that survives caller cancellation so aborted attempts are kept.
func (e *Executor) record(ctx context.Context, a domain.Attempt, kind FailureKind) {
	metrics.AttemptsTotal.WithLabelValues(a.Interface, string(a.Outcome), kind.String()).Inc()
	metrics.AttemptLatency.WithLabelValues(a.Interface, string(a.Outcome)).Observe(a.Latency.Seconds())
	e.journal.Record(context.WithoutCancel(ctx), a)
}

// bodySource hands every attempt a fresh copy of the request body.
type bodySource struct {
	getBody func() (io.ReadCloser, error)
}

// newBodySource prepares req's body for replay. A body without GetBody is
// read once into memory, but only when more than one attempt may need it.
func newBodySource(req *http.Request, replay bool) (*bodySource, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil || !replay {
		return &bodySource{getBody: req.GetBody}, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	return &bodySource{getBody: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}, nil
}

func (b *bodySource) request(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if b.getBody == nil {
		// Single candidate and no GetBody: the original body is used once.
		return out, nil
	}
	if attempt == 0 && req.GetBody != nil {
		return out, nil
	}
	body, err := b.getBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	out.GetBody = b.getBody
	return out, nil
}
