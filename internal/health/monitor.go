package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/netif"
)

// Snapshotter exposes the registry state.
type Snapshotter interface {
	Snapshot() []netif.ClassState
}

// Checker is a dependency that can be pinged, such as a journal backend.
type Checker interface {
	Health(ctx context.Context) error
}

// Monitor builds health reports from the registry snapshot.
type Monitor struct {
	registry     Snapshotter
	dependencies map[string]Checker
	cacheFor     time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor. Reports are reused for cacheFor
// so that probes do not ping dependencies on every request.
func NewMonitor(registry Snapshotter, cacheFor time.Duration) *Monitor {
	return &Monitor{
		registry:     registry,
		dependencies: make(map[string]Checker),
		cacheFor:     cacheFor,
	}
}

// AddDependency includes c in reports under name. A failing dependency
// degrades the system status but never makes it critical.
func (m *Monitor) AddDependency(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dependencies[name] = c
}

// CheckHealth returns the current report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheFor {
		return *m.lastReport
	}

	report := HealthReport{Interfaces: []InterfaceHealth{}}
	present := 0
	for _, cs := range m.registry.Snapshot() {
		ih := InterfaceHealth{
			Class:     cs.Class.Key(),
			Transport: string(cs.Class.Transport),
			Phase:     cs.State.Phase().String(),
		}
		if h, ok := cs.State.Handle(); ok {
			ih.Interface = h.String()
			present++
		}
		if caps, ok := cs.State.Capabilities(); ok {
			ih.Metered = caps.Metered
		}
		if link, ok := cs.State.LinkProperties(); ok {
			ih.MTU = link.MTU
			for _, p := range link.Addrs {
				ih.Addrs = append(ih.Addrs, p.String())
			}
		}
		if cs.State.Phase() == domain.PhasePresentValid {
			report.Available++
		}
		report.Interfaces = append(report.Interfaces, ih)
	}

	switch {
	case report.Available > 0:
		report.SystemStatus = StatusHealthy
	case present > 0:
		report.SystemStatus = StatusDegraded
	default:
		report.SystemStatus = StatusCritical
	}

	if len(m.dependencies) > 0 {
		report.Dependencies = make(map[string]string, len(m.dependencies))
		for name, c := range m.dependencies {
			if err := c.Health(ctx); err != nil {
				report.Dependencies[name] = err.Error()
				if report.SystemStatus == StatusHealthy {
					report.SystemStatus = StatusDegraded
				}
				continue
			}
			report.Dependencies[name] = "ok"
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}
