package netif

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// fakeSource records registrations and lets tests fire events by class key.
type fakeSource struct {
	mu        sync.Mutex
	callbacks map[string]Callback
	registers map[string]int
	cancelled map[string]int
	failOn    string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		callbacks: make(map[string]Callback),
		registers: make(map[string]int),
		cancelled: make(map[string]int),
	}
}

func (s *fakeSource) Register(class domain.InterfaceClass, cb Callback) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if class.Key() == s.failOn {
		return nil, errors.New("permission denied")
	}
	s.callbacks[class.Key()] = cb
	s.registers[class.Key()]++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled[class.Key()]++
	}, nil
}

func (s *fakeSource) cb(key string) Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks[key]
}

// bringUp delivers the full available + capabilities + link sequence.
func (s *fakeSource) bringUp(key string, h domain.Handle, caps domain.Capabilities, mtu int) {
	cb := s.cb(key)
	cb.OnAvailable(h)
	cb.OnCapabilitiesChanged(h, caps)
	cb.OnLinkPropertiesChanged(h, domain.LinkProperties{
		MTU:   mtu,
		Addrs: []netip.Prefix{netip.MustParsePrefix(fmt.Sprintf("10.0.%d.2/24", h.Index))},
	})
}

var (
	wlan0  = domain.Handle{Index: 3, Name: "wlan0"}
	rmnet0 = domain.Handle{Index: 5, Name: "rmnet0"}
	eth0   = domain.Handle{Index: 2, Name: "eth0"}
)

func startRegistry(t *testing.T, cfg domain.PriorityConfig) (*Registry, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	reg := NewRegistry(src, nil)
	require.NoError(t, reg.Start(cfg))
	return reg, src
}

func TestRegistry_EmptyUntilEvents(t *testing.T) {
	reg, _ := startRegistry(t, domain.WifiThenCellular())

	assert.Empty(t, reg.AvailableInterfaces(nil))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "wifi", snap[0].Class.Key())
	assert.Equal(t, domain.PhaseAbsent, snap[0].State.Phase())
	assert.Equal(t, "cellular", snap[1].Class.Key())
}

func TestRegistry_ValidityGating(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	cb := src.cb("wifi")

	cb.OnAvailable(wlan0)
	assert.Empty(t, reg.AvailableInterfaces(nil), "available without properties must not be offered")

	cb.OnCapabilitiesChanged(wlan0, domain.Capabilities{Transport: domain.TransportWifi})
	assert.Empty(t, reg.AvailableInterfaces(nil), "capabilities alone are not enough")

	cb.OnLinkPropertiesChanged(wlan0, domain.LinkProperties{MTU: 1500})
	assert.Equal(t, []domain.Handle{wlan0}, reg.AvailableInterfaces(nil))
}

func TestRegistry_DeclarationOrderWithoutResolver(t *testing.T) {
	reg, src := startRegistry(t, domain.EthernetThenWifiThenCellular())

	// Events arrive in an order unrelated to the configuration.
	src.bringUp("cellular", rmnet0, domain.Capabilities{Transport: domain.TransportCellular, Metered: true}, 1400)
	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
	src.bringUp("ethernet", eth0, domain.Capabilities{Transport: domain.TransportEthernet}, 9000)

	assert.Equal(t, []domain.Handle{eth0, wlan0, rmnet0}, reg.AvailableInterfaces(nil))
}

func TestRegistry_ResolverStableSort(t *testing.T) {
	reg, src := startRegistry(t, domain.EthernetThenWifiThenCellular())

	src.bringUp("ethernet", eth0, domain.Capabilities{Transport: domain.TransportEthernet}, 1500)
	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
	src.bringUp("cellular", rmnet0, domain.Capabilities{Transport: domain.TransportCellular}, 1500)

	cellularFirst := PreferTransports(domain.TransportCellular)
	// ethernet and wifi tie; their declaration order must survive.
	assert.Equal(t, []domain.Handle{rmnet0, eth0, wlan0}, reg.AvailableInterfaces(cellularFirst))

	equal := ResolverFunc(func(a, b domain.ValidInterface) int { return 0 })
	assert.Equal(t, []domain.Handle{eth0, wlan0, rmnet0}, reg.AvailableInterfaces(equal))
}

func TestRegistry_LostResetsOnlyOwnClass(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
	src.bringUp("cellular", rmnet0, domain.Capabilities{Transport: domain.TransportCellular}, 1400)

	src.cb("wifi").OnLost(wlan0)

	got := reg.AvailableInterfaces(nil)
	assert.Equal(t, []domain.Handle{rmnet0}, got)
	assert.NotContains(t, got, wlan0)
}

func TestRegistry_ReacquiredHandleStartsIncomplete(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)

	cb := src.cb("wifi")
	cb.OnLost(wlan0)
	wlan1 := domain.Handle{Index: 9, Name: "wlan1"}
	cb.OnAvailable(wlan1)

	assert.Empty(t, reg.AvailableInterfaces(nil), "new handle must not inherit old properties")
}

func TestRegistry_CapabilitiesChangeIsolated(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
	src.bringUp("cellular", rmnet0, domain.Capabilities{Transport: domain.TransportCellular, Metered: true}, 1400)

	before := reg.Snapshot()[1].State
	src.cb("wifi").OnCapabilitiesChanged(wlan0, domain.Capabilities{Transport: domain.TransportWifi, Metered: true})
	after := reg.Snapshot()[1].State

	assert.Equal(t, before, after)

	wifiCaps, ok := reg.Snapshot()[0].State.Capabilities()
	require.True(t, ok)
	assert.True(t, wifiCaps.Metered)
}

func TestRegistry_PropertyChangeBeforeAvailableIgnored(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	cb := src.cb("wifi")

	cb.OnCapabilitiesChanged(wlan0, domain.Capabilities{Transport: domain.TransportWifi})
	cb.OnLinkPropertiesChanged(wlan0, domain.LinkProperties{MTU: 1500})

	assert.Equal(t, domain.PhaseAbsent, reg.Snapshot()[0].State.Phase())
	assert.Empty(t, reg.AvailableInterfaces(nil))
}

func TestRegistry_StartIsIdempotentPerClass(t *testing.T) {
	src := newFakeSource()
	reg := NewRegistry(src, nil)

	require.NoError(t, reg.Start(domain.WifiThenCellular()))
	require.NoError(t, reg.Start(domain.WifiThenCellular()))

	assert.Equal(t, 1, src.registers["wifi"])
	assert.Equal(t, 1, src.registers["cellular"])
	assert.Len(t, reg.Snapshot(), 2)
}

func TestRegistry_StartRegisterError(t *testing.T) {
	src := newFakeSource()
	src.failOn = "cellular"
	reg := NewRegistry(src, nil)

	err := reg.Start(domain.WifiThenCellular())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register class cellular")
	assert.Len(t, reg.Snapshot(), 1)

	src.failOn = ""
	require.NoError(t, reg.Start(domain.WifiThenCellular()))
	assert.Equal(t, 1, src.registers["wifi"])
	assert.Equal(t, 1, src.registers["cellular"])
	require.NotNil(t, src.cb("cellular"))

	rows := reg.Snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "wifi", rows[0].Class.Key())
	assert.Equal(t, "cellular", rows[1].Class.Key())
}

func TestRegistry_Close(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())

	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())

	assert.Equal(t, 1, src.cancelled["wifi"])
	assert.Equal(t, 1, src.cancelled["cellular"])
}

func TestRegistry_ConcurrentEventsAndQueries(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	wifi, cell := src.cb("wifi"), src.cb("cellular")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
			wifi.OnLost(wlan0)
		}()
		go func() {
			defer wg.Done()
			src.bringUp("cellular", rmnet0, domain.Capabilities{Transport: domain.TransportCellular}, 1400)
			cell.OnCapabilitiesChanged(rmnet0, domain.Capabilities{Transport: domain.TransportCellular, Metered: true})
		}()
		go func() {
			defer wg.Done()
			for _, h := range reg.AvailableInterfaces(PreferUnmetered) {
				assert.Contains(t, []domain.Handle{wlan0, rmnet0}, h)
			}
			_ = reg.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, []domain.Handle{rmnet0}, reg.AvailableInterfaces(nil))
}

func TestRegistry_OnRetired(t *testing.T) {
	reg, src := startRegistry(t, domain.WifiThenCellular())
	var retired []domain.Handle
	reg.OnRetired(func(h domain.Handle) { retired = append(retired, h) })

	src.bringUp("wifi", wlan0, domain.Capabilities{Transport: domain.TransportWifi}, 1500)
	assert.Empty(t, retired)

	wlan1 := domain.Handle{Index: 9, Name: "wlan1"}
	src.cb("wifi").OnAvailable(wlan1)
	src.cb("wifi").OnLost(wlan1)
	src.cb("wifi").OnLost(wlan1)

	assert.Equal(t, []domain.Handle{wlan0, wlan1}, retired)
}
