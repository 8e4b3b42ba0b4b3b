package netif

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
)

// HostInterface is one interface as reported by the host.
type HostInterface struct {
	Index        int
	Name         string
	Flags        net.Flags
	MTU          int
	HardwareAddr net.HardwareAddr
	Addrs        []netip.Prefix
}

// Lister enumerates host interfaces.
type Lister interface {
	List() ([]HostInterface, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func() ([]HostInterface, error)

func (f ListerFunc) List() ([]HostInterface, error) { return f() }

// HostLister lists interfaces through the net package.
type HostLister struct{}

func (HostLister) List() ([]HostInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]HostInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			// Interface vanished between the two calls.
			continue
		}
		out = append(out, HostInterface{
			Index:        iface.Index,
			Name:         iface.Name,
			Flags:        iface.Flags,
			MTU:          iface.MTU,
			HardwareAddr: iface.HardwareAddr,
			Addrs:        toPrefixes(addrs),
		})
	}
	return out, nil
}

func toPrefixes(addrs []net.Addr) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(addrs))
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		out = append(out, netip.PrefixFrom(ip.Unmap(), ones))
	}
	slices.SortFunc(out, func(a, b netip.Prefix) int {
		if c := a.Addr().Compare(b.Addr()); c != 0 {
			return c
		}
		return a.Bits() - b.Bits()
	})
	return out
}
