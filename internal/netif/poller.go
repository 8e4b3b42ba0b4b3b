package netif

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// DefaultPollInterval is used when PollerConfig.Interval is zero.
const DefaultPollInterval = 2 * time.Second

var defaultPrefixes = map[domain.TransportType][]string{
	domain.TransportWifi:      {"wlan", "wl", "wifi"},
	domain.TransportEthernet:  {"eth", "en"},
	domain.TransportCellular:  {"wwan", "rmnet", "ccmni", "pdp"},
	domain.TransportVPN:       {"tun", "tap", "wg", "utun", "ppp", "ipsec"},
	domain.TransportBluetooth: {"bnep", "bt"},
	domain.TransportUSB:       {"usb"},
	domain.TransportLowpan:    {"lowpan", "wpan"},
	domain.TransportWifiAware: {"nan", "aware"},
	domain.TransportThread:    {"thread", "wpan"},
	domain.TransportSatellite: {"sat"},
}

// PollerConfig holds host polling settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Poller is a Source that scans host interfaces periodically and turns the
// differences between scans into per-class events.
type Poller struct {
	lister   Lister
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int

	// scanMu serializes scans so each subscription sees its events in order.
	scanMu sync.Mutex
}

type subscription struct {
	class domain.InterfaceClass
	cb    Callback
	bound *boundView

	mu        sync.Mutex
	cancelled bool
}

type boundView struct {
	handle domain.Handle
	caps   *domain.Capabilities
	link   *domain.LinkProperties
}

// NewPoller creates a poller. A nil lister uses HostLister.
func NewPoller(lister Lister, cfg PollerConfig, log *slog.Logger) *Poller {
	if lister == nil {
		lister = HostLister{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		lister:   lister,
		interval: cfg.Interval,
		log:      log.With("component", "poller"),
		subs:     make(map[int]*subscription),
	}
}

// Register implements Source. Events for the new subscription start with the next scan.
func (p *Poller) Register(class domain.InterfaceClass, cb Callback) (func(), error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	sub := &subscription{class: class, cb: cb}
	p.subs[id] = sub
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.mu.Lock()
			sub.cancelled = true
			sub.mu.Unlock()

			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}, nil
}

// Run scans immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Scan(); err != nil {
			p.log.Warn("Interface scan failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan lists host interfaces once and delivers the resulting events.
func (p *Poller) Scan() error {
	hosts, err := p.lister.List()
	if err != nil {
		return err
	}
	slices.SortFunc(hosts, func(a, b HostInterface) int { return a.Index - b.Index })

	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	p.mu.Lock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]*subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, p.subs[id])
	}
	p.mu.Unlock()

	for _, sub := range subs {
		host, ok := matchHost(sub.class, hosts)
		sub.deliver(host, ok)
	}
	return nil
}

// deliver emits the events that move the subscriber from its last view to host.
func (s *subscription) deliver(host HostInterface, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}

	if !present {
		if s.bound != nil {
			s.cb.OnLost(s.bound.handle)
			s.bound = nil
		}
		return
	}

	h := domain.Handle{Index: host.Index, Name: host.Name}
	if s.bound != nil && s.bound.handle != h {
		s.cb.OnLost(s.bound.handle)
		s.bound = nil
	}
	if s.bound == nil {
		s.cb.OnAvailable(h)
		s.bound = &boundView{handle: h}
	}

	caps := capabilitiesOf(s.class, host)
	if s.bound.caps == nil || *s.bound.caps != caps {
		s.cb.OnCapabilitiesChanged(h, caps)
		s.bound.caps = &caps
	}

	link := domain.LinkProperties{
		MTU:          host.MTU,
		HardwareAddr: host.HardwareAddr,
		Addrs:        host.Addrs,
	}.Clone()
	if s.bound.link == nil || !s.bound.link.Equal(link) {
		s.cb.OnLinkPropertiesChanged(h, link)
		s.bound.link = &link
	}
}

// matchHost returns the lowest-index host interface satisfying class.
func matchHost(class domain.InterfaceClass, hosts []HostInterface) (HostInterface, bool) {
	prefixes := class.Match.NamePrefixes
	if len(prefixes) == 0 {
		prefixes = defaultPrefixes[class.Transport]
	}

	for _, h := range hosts {
		if h.Flags&net.FlagLoopback != 0 {
			continue
		}
		if class.Match.RequireUp && h.Flags&net.FlagUp == 0 {
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(h.Name, prefix) {
				return h, true
			}
		}
	}
	return HostInterface{}, false
}

func capabilitiesOf(class domain.InterfaceClass, h HostInterface) domain.Capabilities {
	return domain.Capabilities{
		Transport:    class.Transport,
		Up:           h.Flags&net.FlagUp != 0,
		Running:      h.Flags&net.FlagRunning != 0,
		Loopback:     h.Flags&net.FlagLoopback != 0,
		PointToPoint: h.Flags&net.FlagPointToPoint != 0,
		Multicast:    h.Flags&net.FlagMulticast != 0,
		Metered:      class.Transport.Metered(),
	}
}
