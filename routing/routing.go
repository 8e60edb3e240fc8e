// Package routing implements the longest-prefix-match routing table
// NetworkStack consults to pick an outgoing interface (and optional
// gateway) for a destination address. Spec.md treats this component as a
// black box, so the matching algorithm here is a straightforward linear
// scan rather than a trie: correctness over cleverness, since this is not
// the part of the system under test.
package routing

import (
	"net/netip"
	"sync"

	"github.com/soypat/lnetstack/datalink"
)

// Route binds a network prefix to an outgoing interface and an optional
// gateway for off-link destinations.
type Route struct {
	Network   netip.Prefix
	Gateway   netip.Addr // zero value means the destination is on-link.
	Interface *datalink.Interface
}

// HasGateway reports whether r routes through a gateway rather than
// directly to the destination.
func (r Route) HasGateway() bool { return r.Gateway.IsValid() }

// Table is a longest-prefix-match routing table. The zero value is ready
// to use.
type Table struct {
	mu     sync.RWMutex
	routes []Route
}

// AddRoute installs a route for network, optionally via gateway, bound to
// iface. Later calls with an overlapping but more specific network still
// win on lookup, since Route selects the longest matching prefix
// regardless of insertion order.
func (t *Table) AddRoute(network netip.Prefix, gateway netip.Addr, iface *datalink.Interface) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, Route{Network: network, Gateway: gateway, Interface: iface})
}

// Route returns the longest-prefix-match route for dst, and false if no
// installed network covers it.
func (t *Table) Route(dst netip.Addr) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	best := -1
	var bestRoute Route
	for _, r := range t.routes {
		if !r.Network.Contains(dst) {
			continue
		}
		if bits := r.Network.Bits(); bits > best {
			best = bits
			bestRoute = r
		}
	}
	return bestRoute, best >= 0
}
