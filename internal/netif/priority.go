package netif

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// Resolver orders failover candidates. Compare returns a negative number when
// a has higher priority than b, zero when equal, positive when lower.
// Implementations must be pure.
type Resolver interface {
	Compare(a, b domain.ValidInterface) int
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(a, b domain.ValidInterface) int

func (f ResolverFunc) Compare(a, b domain.ValidInterface) int {
	return f(a, b)
}

// PreferUnmetered ranks unmetered interfaces ahead of metered ones.
var PreferUnmetered = ResolverFunc(func(a, b domain.ValidInterface) int {
	return cmp.Compare(boolRank(a.Capabilities().Metered), boolRank(b.Capabilities().Metered))
})

// PreferLargerMTU ranks interfaces with a larger MTU first.
var PreferLargerMTU = ResolverFunc(func(a, b domain.ValidInterface) int {
	return cmp.Compare(b.LinkProperties().MTU, a.LinkProperties().MTU)
})

// PreferTransports ranks interfaces by the position of their transport in
// order. Transports not listed rank last and compare equal to each other.
func PreferTransports(order ...domain.TransportType) Resolver {
	rank := func(t domain.TransportType) int {
		if i := slices.Index(order, t); i >= 0 {
			return i
		}
		return len(order)
	}
	return ResolverFunc(func(a, b domain.ValidInterface) int {
		return cmp.Compare(rank(a.Capabilities().Transport), rank(b.Capabilities().Transport))
	})
}

// Chain consults resolvers in turn; the first non-zero result wins.
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(a, b domain.ValidInterface) int {
		for _, r := range resolvers {
			if c := r.Compare(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
}

// ParseResolver builds a resolver chain from configuration names:
// "unmetered", "mtu", or "transport:<t1>,<t2>,...". No names means no resolver.
func ParseResolver(names []string) (Resolver, error) {
	if len(names) == 0 {
		return nil, nil
	}

	chain := make([]Resolver, 0, len(names))
	for _, name := range names {
		switch {
		case name == "unmetered":
			chain = append(chain, PreferUnmetered)
		case name == "mtu":
			chain = append(chain, PreferLargerMTU)
		case strings.HasPrefix(name, "transport:"):
			var order []domain.TransportType
			for _, part := range strings.Split(strings.TrimPrefix(name, "transport:"), ",") {
				t, err := domain.ParseTransport(part)
				if err != nil {
					return nil, fmt.Errorf("resolver %q: %w", name, err)
				}
				order = append(order, t)
			}
			chain = append(chain, PreferTransports(order...))
		default:
			return nil, fmt.Errorf("unknown priority resolver %q", name)
		}
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return Chain(chain...), nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
