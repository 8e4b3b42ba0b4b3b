package netif

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/metrics"
)

// ClassState is one row of a registry snapshot.
type ClassState struct {
	Class domain.InterfaceClass
	State domain.InterfaceState
}

// Registry maintains the live interface state of a fixed set of classes.
type Registry struct {
	source Source
	log    *slog.Logger

	mu      sync.RWMutex
	order   []string
	classes map[string]domain.InterfaceClass
	states  map[string]domain.InterfaceState
	cancels []func()
	retired []func(domain.Handle)
}

// NewRegistry creates a registry fed by source. A nil logger uses slog.Default().
func NewRegistry(source Source, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		source:  source,
		log:     log.With("component", "registry"),
		classes: make(map[string]domain.InterfaceClass),
		states:  make(map[string]domain.InterfaceState),
	}
}

// Start initializes an absent entry for every class in cfg and subscribes to
// the source. Classes this registry already tracks are skipped.
func (r *Registry) Start(cfg domain.PriorityConfig) error {
	for _, class := range cfg.Classes() {
		key := class.Key()

		r.mu.Lock()
		if _, ok := r.classes[key]; ok {
			r.mu.Unlock()
			r.log.Debug("Class already registered", "class", key)
			continue
		}
		r.order = append(r.order, key)
		r.classes[key] = class
		r.states[key] = domain.Absent()
		r.mu.Unlock()

		// Register outside the lock: sources may deliver the current state
		// synchronously from inside Register.
		cancel, err := r.source.Register(class, &classCallback{registry: r, key: key})
		if err != nil {
			r.forget(key)
			return fmt.Errorf("register class %s: %w", key, err)
		}

		r.mu.Lock()
		r.cancels = append(r.cancels, cancel)
		r.mu.Unlock()

		r.log.Info("Tracking interface class", "class", key, "transport", class.Transport)
	}
	return nil
}

// forget drops a class whose subscription failed, so a later Start retries it.
func (r *Registry) forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
	delete(r.classes, key)
	delete(r.states, key)
}

// AvailableInterfaces returns the handles of every present and valid entry.
// Without a resolver the configuration's declaration order is kept; with one,
// the list is stable-sorted by it. An empty result is not an error.
func (r *Registry) AvailableInterfaces(resolver Resolver) []domain.Handle {
	candidates := r.validInterfaces()

	if resolver != nil {
		slices.SortStableFunc(candidates, resolver.Compare)
	}

	handles := make([]domain.Handle, len(candidates))
	for i, c := range candidates {
		handles[i] = c.Handle()
	}
	return handles
}

// Snapshot returns every tracked class and its current state in declaration order.
func (r *Registry) Snapshot() []ClassState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ClassState, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, ClassState{Class: r.classes[key], State: r.states[key]})
	}
	return out
}

// OnRetired registers fn to be called, outside the lock, whenever a class
// drops a handle because it was lost or replaced.
func (r *Registry) OnRetired(fn func(domain.Handle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired = append(r.retired, fn)
}

// Close cancels every subscription made by Start.
func (r *Registry) Close() error {
	r.mu.Lock()
	cancels := r.cancels
	r.cancels = nil
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

func (r *Registry) validInterfaces() []domain.ValidInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ValidInterface, 0, len(r.order))
	for _, key := range r.order {
		if v, ok := r.states[key].Valid(); ok {
			out = append(out, v)
		}
	}
	return out
}

// update applies fn to the entry for key under the write lock.
func (r *Registry) update(key, event string, fn func(domain.InterfaceState) domain.InterfaceState) {
	r.mu.Lock()
	prev, ok := r.states[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	next := fn(prev)
	r.states[key] = next
	available := 0
	for _, s := range r.states {
		if s.Phase() == domain.PhasePresentValid {
			available++
		}
	}
	hooks := r.retired
	r.mu.Unlock()

	if old, ok := prev.Handle(); ok {
		if cur, still := next.Handle(); !still || cur != old {
			for _, fn := range hooks {
				fn(old)
			}
		}
	}

	metrics.InterfaceEventsTotal.WithLabelValues(key, event).Inc()
	metrics.InterfacesAvailable.Set(float64(available))

	if prev.Phase() != next.Phase() {
		r.log.Debug("Interface state changed",
			"class", key,
			"event", event,
			"from", prev.Phase(),
			"to", next.Phase(),
		)
	}
}

// classCallback binds host events to one class key. Keys are per class, not
// per handle: two classes may resolve to related handles.
type classCallback struct {
	registry *Registry
	key      string
}

func (c *classCallback) OnAvailable(h domain.Handle) {
	c.registry.log.Debug("onAvailable", "class", c.key, "interface", h)
	c.registry.update(c.key, "available", func(domain.InterfaceState) domain.InterfaceState {
		return domain.Available(h)
	})
}

func (c *classCallback) OnCapabilitiesChanged(h domain.Handle, caps domain.Capabilities) {
	c.registry.log.Debug("onCapabilitiesChanged", "class", c.key, "interface", h, "capabilities", caps)
	c.registry.update(c.key, "capabilities", func(s domain.InterfaceState) domain.InterfaceState {
		return s.WithCapabilities(caps)
	})
}

func (c *classCallback) OnLinkPropertiesChanged(h domain.Handle, link domain.LinkProperties) {
	c.registry.log.Debug("onLinkPropertiesChanged", "class", c.key, "interface", h, "mtu", link.MTU, "addrs", link.Addrs)
	c.registry.update(c.key, "link_properties", func(s domain.InterfaceState) domain.InterfaceState {
		return s.WithLinkProperties(link)
	})
}

func (c *classCallback) OnLost(h domain.Handle) {
	c.registry.log.Debug("onLost", "class", c.key, "interface", h)
	c.registry.update(c.key, "lost", func(domain.InterfaceState) domain.InterfaceState {
		return domain.Absent()
	})
}
