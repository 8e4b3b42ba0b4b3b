package failover

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// TransportConfig holds the per-interface HTTP transport timeouts.
type TransportConfig struct {
	DialTimeout           time.Duration `yaml:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout"`
}

// DefaultTransportConfig provides sensible defaults.
var DefaultTransportConfig = TransportConfig{
	DialTimeout:           5 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 30 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// WithDefaults fills unset timeouts from DefaultTransportConfig.
func (c TransportConfig) WithDefaults() TransportConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultTransportConfig.DialTimeout
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = DefaultTransportConfig.TLSHandshakeTimeout
	}
	if c.ResponseHeaderTimeout <= 0 {
		c.ResponseHeaderTimeout = DefaultTransportConfig.ResponseHeaderTimeout
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = DefaultTransportConfig.IdleConnTimeout
	}
	return c
}

// InterfaceDispatcher executes requests over sockets bound to one host
// interface. It keeps one transport, and so one connection pool, per handle.
type InterfaceDispatcher struct {
	cfg    TransportConfig
	log    *slog.Logger
	lookup func(index int) (*net.Interface, error)
	addrs  func(iface *net.Interface) ([]net.Addr, error)

	mu         sync.Mutex
	transports map[domain.Handle]*http.Transport
}

// NewInterfaceDispatcher creates a dispatcher. A nil logger uses slog.Default().
func NewInterfaceDispatcher(cfg TransportConfig, log *slog.Logger) *InterfaceDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &InterfaceDispatcher{
		cfg:        cfg.WithDefaults(),
		log:        log.With("component", "dispatcher"),
		lookup:     net.InterfaceByIndex,
		addrs:      (*net.Interface).Addrs,
		transports: make(map[domain.Handle]*http.Transport),
	}
}

// ExecuteOn performs req through the transport bound to h.
func (d *InterfaceDispatcher) ExecuteOn(ctx context.Context, h domain.Handle, req *http.Request) (*http.Response, error) {
	if req.Context() != ctx {
		req = req.WithContext(ctx)
	}
	return d.transport(h).RoundTrip(req)
}

// Forget drops the transport of a handle that no longer exists.
func (d *InterfaceDispatcher) Forget(h domain.Handle) {
	d.mu.Lock()
	t, ok := d.transports[h]
	delete(d.transports, h)
	d.mu.Unlock()

	if ok {
		t.CloseIdleConnections()
		d.log.Debug("Dropped interface transport", "interface", h)
	}
}

// Close closes the idle connections of every transport.
func (d *InterfaceDispatcher) Close() error {
	d.mu.Lock()
	transports := d.transports
	d.transports = make(map[domain.Handle]*http.Transport)
	d.mu.Unlock()

	for _, t := range transports {
		t.CloseIdleConnections()
	}
	return nil
}

func (d *InterfaceDispatcher) transport(h domain.Handle) *http.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.transports[h]; ok {
		return t
	}
	t := &http.Transport{
		DialContext:           d.dialContext(h),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   d.cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: d.cfg.ResponseHeaderTimeout,
		IdleConnTimeout:       d.cfg.IdleConnTimeout,
	}
	d.transports[h] = t
	return t
}

// boundInterface is a handle resolved to its live host interface.
type boundInterface struct {
	handle domain.Handle
	v4, v6 netip.Addr
}

func (b boundInterface) localFor(remote netip.Addr) (netip.Addr, bool) {
	if remote.Unmap().Is4() {
		return b.v4, b.v4.IsValid()
	}
	return b.v6, b.v6.IsValid()
}

// resolve checks that h still names a live, up interface and picks one
// usable local address per family.
func (d *InterfaceDispatcher) resolve(h domain.Handle) (boundInterface, error) {
	iface, err := d.lookup(h.Index)
	if err != nil {
		return boundInterface{}, fmt.Errorf("%w: %s: %v", ErrInterfaceUnusable, h, err)
	}
	if iface.Name != h.Name {
		return boundInterface{}, fmt.Errorf("%w: %s: index now belongs to %s", ErrInterfaceUnusable, h, iface.Name)
	}
	if iface.Flags&net.FlagUp == 0 {
		return boundInterface{}, fmt.Errorf("%w: %s is down", ErrInterfaceUnusable, h)
	}
	addrs, err := d.addrs(iface)
	if err != nil {
		return boundInterface{}, fmt.Errorf("%w: %s: %v", ErrInterfaceUnusable, h, err)
	}

	b := boundInterface{handle: h}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.IsLinkLocalUnicast() || (ip.IsLoopback() && iface.Flags&net.FlagLoopback == 0) {
			continue
		}
		if ip.Is4() && !b.v4.IsValid() {
			b.v4 = ip
		} else if ip.Is6() && !b.v6.IsValid() {
			b.v6 = ip
		}
	}
	if !b.v4.IsValid() && !b.v6.IsValid() {
		return boundInterface{}, fmt.Errorf("%w: %s has no usable address", ErrInterfaceUnusable, h)
	}
	return b, nil
}

func (d *InterfaceDispatcher) dialer(b boundInterface, network string, local netip.Addr) *net.Dialer {
	dialer := &net.Dialer{
		Timeout: d.cfg.DialTimeout,
		Control: bindToDevice(b.handle.Name),
	}
	switch network {
	case "udp", "udp4", "udp6":
		dialer.LocalAddr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	default:
		dialer.LocalAddr = net.TCPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	}
	return dialer
}

// dialRemote dials one literal address from the matching local address.
func (d *InterfaceDispatcher) dialRemote(ctx context.Context, b boundInterface, network string, remote netip.AddrPort) (net.Conn, error) {
	local, ok := b.localFor(remote.Addr())
	if !ok {
		return nil, fmt.Errorf("%w: %s has no address for %s", ErrInterfaceUnusable, b.handle, remote.Addr())
	}
	return d.dialer(b, network, local).DialContext(ctx, network, remote.String())
}

// resolver looks names up with DNS traffic leaving through the same interface.
func (d *InterfaceDispatcher) resolver(b boundInterface) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			remote, err := netip.ParseAddrPort(address)
			if err != nil {
				return nil, err
			}
			return d.dialRemote(ctx, b, network, remote)
		},
	}
}

func (d *InterfaceDispatcher) dialContext(h domain.Handle) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		b, err := d.resolve(h)
		if err != nil {
			return nil, err
		}

		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		port, err := net.LookupPort(network, portStr)
		if err != nil {
			return nil, err
		}

		if ip, err := netip.ParseAddr(host); err == nil {
			return d.dialRemote(ctx, b, network, netip.AddrPortFrom(ip, uint16(port)))
		}

		ips, err := d.resolver(b).LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, ip := range ips {
			if _, ok := b.localFor(ip); !ok {
				continue
			}
			conn, err := d.dialRemote(ctx, b, network, netip.AddrPortFrom(ip.Unmap(), uint16(port)))
			if err == nil {
				return conn, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: %s has no address family in common with %s", ErrInterfaceUnusable, h, host)
		}
		return nil, lastErr
	}
}
