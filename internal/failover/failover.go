package failover

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/netif"
)

// Options wires a Failover. Priority and Source are required.
type Options struct {
	Priority domain.PriorityConfig
	Resolver netif.Resolver
	Source   netif.Source

	// Dispatcher defaults to an InterfaceDispatcher built from Transport.
	Dispatcher Dispatcher
	Transport  TransportConfig

	// Journal receives attempts in addition to the log journal.
	Journal Journal
	Logger  *slog.Logger
}

// Failover tracks the configured interface classes and executes requests
// across them.
type Failover struct {
	registry   *netif.Registry
	executor   *Executor
	dispatcher Dispatcher
}

// New starts a registry over opts.Source and builds the executor around it.
func New(opts Options) (*Failover, error) {
	if opts.Priority.Len() == 0 {
		return nil, domain.ErrNoInterfaceClasses
	}
	if opts.Source == nil {
		return nil, errors.New("interface source is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	registry := netif.NewRegistry(opts.Source, log)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		d := NewInterfaceDispatcher(opts.Transport, log)
		registry.OnRetired(d.Forget)
		dispatcher = d
	}

	if err := registry.Start(opts.Priority); err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("start registry: %w", err)
	}

	journal := Journal(NewLogJournal(log))
	if opts.Journal != nil {
		journal = MultiJournal{journal, opts.Journal}
	}

	executor := NewExecutor(registry, dispatcher,
		WithResolver(opts.Resolver),
		WithJournal(journal),
		WithLogger(log),
	)

	return &Failover{
		registry:   registry,
		executor:   executor,
		dispatcher: dispatcher,
	}, nil
}

// Client returns a copy of base that sends every request through failover.
func (f *Failover) Client(base *http.Client) *http.Client {
	return NewClient(base, NewRoundTripper(f.executor))
}

func (f *Failover) Execute(req *http.Request) (*http.Response, error) {
	return f.executor.Execute(req)
}

func (f *Failover) Registry() *netif.Registry {
	return f.registry
}

// Close unsubscribes from the source and releases idle connections.
func (f *Failover) Close() error {
	err := f.registry.Close()
	if c, ok := f.dispatcher.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
