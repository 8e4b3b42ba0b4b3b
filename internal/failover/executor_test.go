package failover

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/netif"
)

var (
	wifi     = domain.Handle{Index: 3, Name: "wlan0"}
	cellular = domain.Handle{Index: 5, Name: "rmnet0"}
	ethernet = domain.Handle{Index: 2, Name: "eth0"}
)

// staticCandidates returns a fixed list and remembers the resolver it got.
type staticCandidates struct {
	handles  []domain.Handle
	resolver netif.Resolver
}

func (s *staticCandidates) AvailableInterfaces(r netif.Resolver) []domain.Handle {
	s.resolver = r
	return append([]domain.Handle(nil), s.handles...)
}

// scriptedDispatcher answers per handle and records every call.
type scriptedDispatcher struct {
	mu      sync.Mutex
	results map[domain.Handle]error
	calls   []domain.Handle
	bodies  []string
	onCall  func(h domain.Handle)
}

func (d *scriptedDispatcher) ExecuteOn(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.calls = append(d.calls, h)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		d.bodies = append(d.bodies, string(b))
	}
	err := d.results[h]
	d.mu.Unlock()

	if d.onCall != nil {
		d.onCall(h)
	}
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"X-Interface": []string{h.Name}},
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}, nil
}

// recordingJournal keeps every attempt in memory.
type recordingJournal struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func (j *recordingJournal) Record(_ context.Context, a domain.Attempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, a)
}

func (j *recordingJournal) outcomes() []domain.AttemptOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.AttemptOutcome, len(j.attempts))
	for i, a := range j.attempts {
		out[i] = a.Outcome
	}
	return out
}

func connectTimeout() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}
}

func refused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/status", nil)
	require.NoError(t, err)
	return req
}

func newTestExecutor(handles []domain.Handle, d Dispatcher, opts ...ExecutorOption) (*Executor, *recordingJournal) {
	j := &recordingJournal{}
	opts = append([]ExecutorOption{WithJournal(j)}, opts...)
	return NewExecutor(&staticCandidates{handles: handles}, d, opts...), j
}

func TestExecute_FailoverOnRetryableError(t *testing.T) {
	d := &scriptedDispatcher{results: map[domain.Handle]error{wifi: connectTimeout()}}
	e, journal := newTestExecutor([]domain.Handle{wifi, cellular}, d)

	resp, err := e.Execute(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "rmnet0", resp.Header.Get("X-Interface"))
	assert.Equal(t, []domain.Handle{wifi, cellular}, d.calls)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeFailover, domain.OutcomeSuccess}, journal.outcomes())

	first := journal.attempts[0]
	assert.Equal(t, "wlan0#3", first.Interface)
	assert.Equal(t, "timeout", first.Kind)
	assert.NotEmpty(t, first.Error)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, first.ExecutionID, journal.attempts[1].ExecutionID)
}

func TestExecute_NonRetryableReturnedVerbatim(t *testing.T) {
	malformed := errors.New("net/http: invalid header field name")
	d := &scriptedDispatcher{results: map[domain.Handle]error{cellular: malformed}}
	e, journal := newTestExecutor([]domain.Handle{cellular}, d)

	resp, err := e.Execute(newRequest(t))
	assert.Nil(t, resp)
	assert.True(t, err == malformed, "error must be returned unwrapped, got %v", err)
	assert.Equal(t, []domain.Handle{cellular}, d.calls)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeAbort}, journal.outcomes())
	assert.Equal(t, "other", journal.attempts[0].Kind)
}

func TestExecute_NilResponseIsNonRetryable(t *testing.T) {
	var calls []domain.Handle
	d := DispatcherFunc(func(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error) {
		calls = append(calls, h)
		return nil, nil
	})
	e, journal := newTestExecutor([]domain.Handle{wifi, cellular}, d)

	var (
		resp *http.Response
		err  error
	)
	require.NotPanics(t, func() { resp, err = e.Execute(newRequest(t)) })
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNilResponse)
	assert.Equal(t, []domain.Handle{wifi}, calls)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeAbort}, journal.outcomes())
	assert.Equal(t, "other", journal.attempts[0].Kind)
}

func TestExecute_StopsAtFirstSuccess(t *testing.T) {
	handles := []domain.Handle{ethernet, wifi, cellular}

	for k := 1; k <= len(handles); k++ {
		results := make(map[domain.Handle]error)
		for _, h := range handles[:k-1] {
			results[h] = refused()
		}
		d := &scriptedDispatcher{results: results}
		e, _ := newTestExecutor(handles, d)

		_, err := e.Execute(newRequest(t))
		require.NoError(t, err)
		assert.Equal(t, handles[:k], d.calls, "success at position %d", k)
	}
}

func TestExecute_StopsAtNonRetryable(t *testing.T) {
	fatal := errors.New("unsupported protocol scheme")
	d := &scriptedDispatcher{results: map[domain.Handle]error{
		ethernet: refused(),
		wifi:     fatal,
	}}
	e, _ := newTestExecutor([]domain.Handle{ethernet, wifi, cellular}, d)

	_, err := e.Execute(newRequest(t))
	assert.Equal(t, fatal, err)
	assert.Equal(t, []domain.Handle{ethernet, wifi}, d.calls)
}

func TestExecute_ExhaustedWrapsLastError(t *testing.T) {
	last := &net.DNSError{Err: "no such host", Name: "example.com"}
	d := &scriptedDispatcher{results: map[domain.Handle]error{
		ethernet: refused(),
		wifi:     connectTimeout(),
		cellular: last,
	}}
	e, journal := newTestExecutor([]domain.Handle{ethernet, wifi, cellular}, d)

	_, err := e.Execute(newRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllInterfacesFailed)
	assert.ErrorIs(t, err, last)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, error(last), exhausted.Last)

	assert.Len(t, d.calls, 3)
	assert.Equal(t, []domain.AttemptOutcome{
		domain.OutcomeFailover,
		domain.OutcomeFailover,
		domain.OutcomeExhausted,
	}, journal.outcomes())
}

func TestExecute_NoInterfaces(t *testing.T) {
	d := &scriptedDispatcher{}
	e, journal := newTestExecutor(nil, d)

	resp, err := e.Execute(newRequest(t))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoInterfaces)
	assert.Empty(t, d.calls)
	assert.Empty(t, journal.outcomes())
}

func TestExecute_PassesResolver(t *testing.T) {
	candidates := &staticCandidates{handles: []domain.Handle{wifi}}
	e := NewExecutor(candidates, &scriptedDispatcher{}, WithResolver(netif.PreferUnmetered))

	_, err := e.Execute(newRequest(t))
	require.NoError(t, err)
	assert.NotNil(t, candidates.resolver)

	candidates = &staticCandidates{handles: []domain.Handle{wifi}}
	e = NewExecutor(candidates, &scriptedDispatcher{})
	_, err = e.Execute(newRequest(t))
	require.NoError(t, err)
	assert.Nil(t, candidates.resolver)
}

func TestExecute_CallerCancelStopsFailover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &scriptedDispatcher{results: map[domain.Handle]error{wifi: refused()}}
	d.onCall = func(domain.Handle) { cancel() }
	e, journal := newTestExecutor([]domain.Handle{wifi, cellular}, d)

	req := newRequest(t).WithContext(ctx)
	_, err := e.Execute(req)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, []domain.Handle{wifi}, d.calls)
	require.Len(t, journal.attempts, 1)
	assert.Equal(t, "canceled", journal.attempts[0].Kind)
	assert.Equal(t, domain.OutcomeAbort, journal.attempts[0].Outcome)
}

func TestExecute_JournalBeforeDecision(t *testing.T) {
	journal := &recordingJournal{}
	d := &scriptedDispatcher{results: map[domain.Handle]error{wifi: refused()}}
	d.onCall = func(h domain.Handle) {
		if h == cellular {
			// The failed wifi attempt is already journaled when cellular starts.
			assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeFailover}, journal.outcomes())
		}
	}
	e := NewExecutor(&staticCandidates{handles: []domain.Handle{wifi, cellular}}, d, WithJournal(journal))

	_, err := e.Execute(newRequest(t))
	require.NoError(t, err)
}

func TestExecute_ReplaysBody(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "with GetBody",
			req: func(t *testing.T) *http.Request {
				req, err := http.NewRequest(http.MethodPost, "http://example.com/submit", bytes.NewReader([]byte(`{"id":1}`)))
				require.NoError(t, err)
				return req
			},
		},
		{
			name: "without GetBody",
			req: func(t *testing.T) *http.Request {
				req, err := http.NewRequest(http.MethodPost, "http://example.com/submit", io.NopCloser(strings.NewReader(`{"id":1}`)))
				require.NoError(t, err)
				require.Nil(t, req.GetBody)
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptedDispatcher{results: map[domain.Handle]error{
				ethernet: refused(),
				wifi:     connectTimeout(),
			}}
			e, _ := newTestExecutor([]domain.Handle{ethernet, wifi, cellular}, d)

			_, err := e.Execute(tt.req(t))
			require.NoError(t, err)
			assert.Equal(t, []string{`{"id":1}`, `{"id":1}`, `{"id":1}`}, d.bodies)
		})
	}
}

func TestExecute_CustomClassifiers(t *testing.T) {
	// Treat every failure as fatal.
	strict := ClassifierGroup{{KindOther, func(error) bool { return true }}}
	d := &scriptedDispatcher{results: map[domain.Handle]error{wifi: refused()}}
	e, _ := newTestExecutor([]domain.Handle{wifi, cellular}, d, WithClassifiers(strict))

	_, err := e.Execute(newRequest(t))
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, []domain.Handle{wifi}, d.calls)
}

func TestMultiJournal(t *testing.T) {
	a, b := &recordingJournal{}, &recordingJournal{}
	var calls int
	m := MultiJournal{a, nil, b, JournalFunc(func(context.Context, domain.Attempt) { calls++ })}

	m.Record(context.Background(), domain.Attempt{Outcome: domain.OutcomeSuccess})

	assert.Len(t, a.attempts, 1)
	assert.Len(t, b.attempts, 1)
	assert.Equal(t, 1, calls)
}
