package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNoInterfaceClasses = errors.New("no interface classes specified")
	ErrUnknownTransport   = errors.New("unknown transport")
	ErrDuplicateClass     = errors.New("duplicate interface class")
)

// PriorityConfig is the ordered list of interface classes to track. The
// declaration order is the default failover order.
type PriorityConfig struct {
	classes []InterfaceClass
}

// NewPriorityConfig builds a config from classes in priority order. Every
// class needs a known transport and a key no earlier class uses.
func NewPriorityConfig(classes ...InterfaceClass) (PriorityConfig, error) {
	if len(classes) == 0 {
		return PriorityConfig{}, ErrNoInterfaceClasses
	}
	seen := make(map[string]int, len(classes))
	for i, c := range classes {
		if !slices.Contains(knownTransports, c.Transport) {
			return PriorityConfig{}, fmt.Errorf("class %d: %w: %q", i, ErrUnknownTransport, c.Transport)
		}
		if j, ok := seen[c.Key()]; ok {
			return PriorityConfig{}, fmt.Errorf("class %d: %w: %q already declared by class %d", i, ErrDuplicateClass, c.Key(), j)
		}
		seen[c.Key()] = i
	}
	return PriorityConfig{classes: slices.Clone(classes)}, nil
}

// Classes returns a copy of the configured classes in priority order.
func (c PriorityConfig) Classes() []InterfaceClass {
	return slices.Clone(c.classes)
}

func (c PriorityConfig) Len() int { return len(c.classes) }

// WifiThenCellular prefers Wi-Fi and falls back to cellular.
func WifiThenCellular() PriorityConfig {
	cfg, _ := NewPriorityBuilder().AddWifi().AddCellular().Build()
	return cfg
}

// EthernetThenWifiThenCellular prefers wired, then Wi-Fi, then cellular.
func EthernetThenWifiThenCellular() PriorityConfig {
	cfg, _ := NewPriorityBuilder().AddEthernet().AddWifi().AddCellular().Build()
	return cfg
}

// PriorityBuilder accumulates classes; each Add call appends the next priority.
type PriorityBuilder struct {
	classes []InterfaceClass
}

func NewPriorityBuilder() *PriorityBuilder {
	return &PriorityBuilder{}
}

// Add appends an arbitrary class.
func (b *PriorityBuilder) Add(class InterfaceClass) *PriorityBuilder {
	b.classes = append(b.classes, class)
	return b
}

// AddTransport appends a class matching the transport's default interfaces.
func (b *PriorityBuilder) AddTransport(t TransportType) *PriorityBuilder {
	return b.Add(InterfaceClass{Transport: t})
}

func (b *PriorityBuilder) AddCellular() *PriorityBuilder  { return b.AddTransport(TransportCellular) }
func (b *PriorityBuilder) AddWifi() *PriorityBuilder      { return b.AddTransport(TransportWifi) }
func (b *PriorityBuilder) AddBluetooth() *PriorityBuilder { return b.AddTransport(TransportBluetooth) }
func (b *PriorityBuilder) AddEthernet() *PriorityBuilder  { return b.AddTransport(TransportEthernet) }
func (b *PriorityBuilder) AddVPN() *PriorityBuilder       { return b.AddTransport(TransportVPN) }
func (b *PriorityBuilder) AddWifiAware() *PriorityBuilder { return b.AddTransport(TransportWifiAware) }
func (b *PriorityBuilder) AddLowpan() *PriorityBuilder    { return b.AddTransport(TransportLowpan) }
func (b *PriorityBuilder) AddUSB() *PriorityBuilder       { return b.AddTransport(TransportUSB) }
func (b *PriorityBuilder) AddThread() *PriorityBuilder    { return b.AddTransport(TransportThread) }
func (b *PriorityBuilder) AddSatellite() *PriorityBuilder { return b.AddTransport(TransportSatellite) }

// Build fails with ErrNoInterfaceClasses when nothing was added, and with
// ErrUnknownTransport or ErrDuplicateClass for an invalid class.
func (b *PriorityBuilder) Build() (PriorityConfig, error) {
	return NewPriorityConfig(b.classes...)
}
