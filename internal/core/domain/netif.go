package domain

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strings"
)

// TransportType is the symbolic class of a network interface.
type TransportType string

const (
	TransportCellular  TransportType = "cellular"
	TransportWifi      TransportType = "wifi"
	TransportBluetooth TransportType = "bluetooth"
	TransportEthernet  TransportType = "ethernet"
	TransportVPN       TransportType = "vpn"
	TransportWifiAware TransportType = "wifi_aware"
	TransportLowpan    TransportType = "lowpan"
	TransportUSB       TransportType = "usb"
	TransportThread    TransportType = "thread"
	TransportSatellite TransportType = "satellite"
)

var knownTransports = []TransportType{
	TransportCellular,
	TransportWifi,
	TransportBluetooth,
	TransportEthernet,
	TransportVPN,
	TransportWifiAware,
	TransportLowpan,
	TransportUSB,
	TransportThread,
	TransportSatellite,
}

// ParseTransport maps a configuration name onto a TransportType.
func ParseTransport(s string) (TransportType, error) {
	t := TransportType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(knownTransports, t) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransport, s)
	}
	return t, nil
}

// Metered reports whether traffic on this transport is usually billed by volume.
func (t TransportType) Metered() bool {
	return t == TransportCellular || t == TransportSatellite
}

// MatchCriteria optionally narrows which host interfaces satisfy a class.
type MatchCriteria struct {
	// NamePrefixes replaces the default name prefixes of the transport.
	NamePrefixes []string
	// RequireUp only accepts interfaces that are administratively up.
	RequireUp bool
}

// InterfaceClass is a caller-declared category of network interface to track,
// independent of which concrete interface currently satisfies it.
type InterfaceClass struct {
	Name      string
	Transport TransportType
	Match     MatchCriteria
}

// Key is the stable identity of the class within a registry.
func (c InterfaceClass) Key() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Transport)
}

func (c InterfaceClass) String() string {
	return c.Key()
}

// Handle identifies one concrete host interface.
type Handle struct {
	Index int
	Name  string
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Name, h.Index)
}

// Capabilities is a snapshot of what an interface can do right now.
type Capabilities struct {
	Transport    TransportType
	Up           bool
	Running      bool
	Loopback     bool
	PointToPoint bool
	Multicast    bool
	Metered      bool
}

// LinkProperties is a snapshot of an interface's link-level configuration.
type LinkProperties struct {
	MTU          int
	HardwareAddr net.HardwareAddr
	Addrs        []netip.Prefix
}

// Equal compares two snapshots field by field.
func (l LinkProperties) Equal(o LinkProperties) bool {
	return l.MTU == o.MTU &&
		l.HardwareAddr.String() == o.HardwareAddr.String() &&
		slices.Equal(l.Addrs, o.Addrs)
}

// Clone returns a deep copy so snapshots never share backing arrays.
func (l LinkProperties) Clone() LinkProperties {
	return LinkProperties{
		MTU:          l.MTU,
		HardwareAddr: slices.Clone(l.HardwareAddr),
		Addrs:        slices.Clone(l.Addrs),
	}
}
