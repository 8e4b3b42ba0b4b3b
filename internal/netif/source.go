// Package netif tracks which host network interfaces can carry traffic.
//
// This package contains:
//   - Source: the host's interface-availability notification mechanism
//   - Registry: a concurrency-safe table of interface state per configured class
//   - Resolver: optional priority ordering over valid interfaces
//   - Poller: a Source that diffs periodic host interface scans into events
package netif

import "github.com/vietddude/netfailover/internal/core/domain"

// Callback receives events for one registered interface class. Events for a
// class may arrive on any goroutine the Source chooses.
type Callback interface {
	// OnAvailable is called when an interface starts satisfying the class.
	OnAvailable(h domain.Handle)

	// OnCapabilitiesChanged is called with a fresh capabilities snapshot.
	OnCapabilitiesChanged(h domain.Handle, caps domain.Capabilities)

	// OnLinkPropertiesChanged is called with a fresh link properties snapshot.
	OnLinkPropertiesChanged(h domain.Handle, link domain.LinkProperties)

	// OnLost is called when the interface no longer satisfies the class.
	OnLost(h domain.Handle)
}

// Source delivers interface-availability events for registered classes.
type Source interface {
	// Register subscribes cb to events for class. The returned cancel
	// function ends the subscription and is safe to call more than once.
	Register(class domain.InterfaceClass, cb Callback) (cancel func(), err error)
}
