// Package netstack ties the Ethernet/ARP/IPv4/ICMP/UDP layers together into
// a multi-interface routing domain: StackInterface owns one host NIC's
// TxBarrier, ArpTable and local IPv4 addresses; NetworkStack owns the
// routing table and the collection of interfaces, and is the public
// surface applications call into.
package netstack

import (
	"log/slog"
	"math/rand/v2"
	"net/netip"
	"sync"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/icmpv4"
	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/routing"
	"github.com/soypat/lnetstack/stackerr"
	"github.com/soypat/lnetstack/udp"
)

// defaultTTL is used for every outgoing datagram; this stack does not
// expose per-send TTL control.
const defaultTTL = 64

// ephemeralLow and ephemeralHigh bound the random local-port range
// UdpListen allocates from when called with port 0, per spec.md's
// scenario S3.
const (
	ephemeralLow  = 32768
	ephemeralHigh = 61000
)

// NetworkStack is the application-facing entry point: it owns a routing
// table and a set of named StackInterfaces, and resolves destination
// addresses into bound, ready-to-send handles.
type NetworkStack struct {
	log    *slog.Logger
	Routes *routing.Table

	mu     sync.RWMutex
	ifaces map[string]*StackInterface
}

// New returns an empty NetworkStack logging through log. A nil log installs
// slog.Default().
func New(log *slog.Logger) *NetworkStack {
	if log == nil {
		log = slog.Default()
	}
	return &NetworkStack{
		log:    log,
		Routes: &routing.Table{},
		ifaces: make(map[string]*StackInterface),
	}
}

// AddInterface binds iface to the stack, consuming ch as its datalink
// channel. iface.Name must not match an interface currently in the stack;
// a name freed by RemoveInterface can be added again.
func (ns *NetworkStack) AddInterface(iface datalink.Interface, ch datalink.Channel) (*StackInterface, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, exists := ns.ifaces[iface.Name]; exists {
		return nil, stackerr.Wrapf(stackerr.InvalidInterface, "netstack: interface %q already added", iface.Name)
	}
	si := newStackInterface(iface, ch, ns.log.With(slog.String("iface", iface.Name)))
	ns.ifaces[iface.Name] = si
	return si, nil
}

// RemoveInterface tears down the named interface and drops it from the
// stack. Routes through it stay in the routing table; resolving a
// destination through one of them afterward fails with InvalidInterface.
func (ns *NetworkStack) RemoveInterface(name string) error {
	ns.mu.Lock()
	si, ok := ns.ifaces[name]
	if !ok {
		ns.mu.Unlock()
		return stackerr.Wrapf(stackerr.InvalidInterface, "netstack: interface %q not found", name)
	}
	delete(ns.ifaces, name)
	ns.mu.Unlock()
	si.Close()
	return nil
}

// AddIPv4 assigns network's address to the named interface and installs a
// directly-connected route for it (no gateway).
func (ns *NetworkStack) AddIPv4(ifaceName string, network netip.Prefix) error {
	ns.mu.RLock()
	si, ok := ns.ifaces[ifaceName]
	ns.mu.RUnlock()
	if !ok {
		return stackerr.Wrapf(stackerr.InvalidInterface, "netstack: interface %q not found", ifaceName)
	}
	if _, err := si.addIPv4(network); err != nil {
		return err
	}
	ns.Routes.AddRoute(network, netip.Addr{}, &si.Iface)
	return nil
}

// resolution is the result of resolving a destination address down to a
// bound send chain: a source-bound ipv4.Tx, the chosen local source
// address, and the resolved next-hop hardware address.
type resolution struct {
	tx   *ipv4.Tx
	src  [4]byte
	dst4 [4]byte
	hw   [6]byte
}

// resolve picks an outgoing interface and source address for dst via the
// routing table, then blocks on ARP resolution of the next hop (dst
// itself, or the route's gateway for off-link destinations).
func (ns *NetworkStack) resolve(dst netip.Addr) (resolution, error) {
	route, ok := ns.Routes.Route(dst)
	if !ok {
		return resolution{}, stackerr.Wrapf(stackerr.NoRouteToHost, "netstack: no route to %s", dst)
	}
	si, err := ns.ifaceFor(route.Interface)
	if err != nil {
		return resolution{}, err
	}
	src, ok := si.closestLocalIP(dst)
	if !ok {
		return resolution{}, stackerr.Wrapf(stackerr.NoRouteToHost, "netstack: interface %q has no local address", si.Iface.Name)
	}
	nextHop := dst
	if route.HasGateway() {
		nextHop = route.Gateway
	}
	hw, err := si.resolveMAC(nextHop.As4(), si.Iface.MAC, src.As4())
	if err != nil {
		return resolution{}, err
	}
	return resolution{
		tx:   si.newIpv4Tx(src.As4()),
		src:  src.As4(),
		dst4: dst.As4(),
		hw:   hw,
	}, nil
}

func (ns *NetworkStack) ifaceFor(target *datalink.Interface) (*StackInterface, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	for _, si := range ns.ifaces {
		if &si.Iface == target {
			return si, nil
		}
	}
	return nil, stackerr.Wrap(stackerr.InvalidInterface, "netstack: route refers to an interface no longer bound to this stack")
}

// localIface returns the StackInterface and Ipv4Data owning ip, if any.
func (ns *NetworkStack) localIface(ip netip.Addr) (*StackInterface, *Ipv4Data, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	for _, si := range ns.ifaces {
		if data, ok := si.ipv4Data(ip); ok {
			return si, data, true
		}
	}
	return nil, nil, false
}

// Ipv4TxHandle is a send chain bound to a resolved destination: only the
// payload remains to be supplied.
type Ipv4TxHandle struct {
	tx   *ipv4.Tx
	hw   [6]byte
	dst4 [4]byte
}

// Send builds and transmits payload to the bound destination.
func (h Ipv4TxHandle) Send(payload ipv4.Payload) error {
	return h.tx.Send(h.hw, h.dst4, defaultTTL, payload)
}

// Ipv4Tx resolves dst (routing + blocking ARP) and returns a handle bound
// to it.
func (ns *NetworkStack) Ipv4Tx(dst netip.Addr) (Ipv4TxHandle, error) {
	r, err := ns.resolve(dst)
	if err != nil {
		return Ipv4TxHandle{}, err
	}
	return Ipv4TxHandle{tx: r.tx, hw: r.hw, dst4: r.dst4}, nil
}

// IcmpTxHandle is an ICMP send chain bound to a resolved destination.
type IcmpTxHandle struct {
	tx   icmpv4.Tx
	hw   [6]byte
	dst4 [4]byte
}

// Send transmits an arbitrary ICMP message to the bound destination.
func (h IcmpTxHandle) Send(payload ipv4.Payload) error {
	return h.tx.Send(h.hw, h.dst4, payload)
}

// SendEcho builds and transmits an echo request/reply to the bound
// destination.
func (h IcmpTxHandle) SendEcho(echo icmpv4.EchoBuilder) error {
	return h.tx.SendEcho(h.hw, h.dst4, echo)
}

// IcmpTx resolves dst and returns an ICMP handle bound to it.
func (ns *NetworkStack) IcmpTx(dst netip.Addr) (IcmpTxHandle, error) {
	r, err := ns.resolve(dst)
	if err != nil {
		return IcmpTxHandle{}, err
	}
	return IcmpTxHandle{tx: icmpv4.NewTx(r.tx, r.src, defaultTTL), hw: r.hw, dst4: r.dst4}, nil
}

// UdpTxHandle is a UDP send chain bound to a resolved (destination
// address, destination port) pair.
type UdpTxHandle struct {
	tx      udp.Tx
	hw      [6]byte
	dst4    [4]byte
	dstPort uint16
}

// Send builds and transmits payload to the bound destination.
func (h UdpTxHandle) Send(payload []byte) error {
	return h.tx.Send(h.hw, h.dst4, h.dstPort, payload)
}

// UdpTx resolves dst and returns a UDP handle sending from srcPort to
// dstPort.
func (ns *NetworkStack) UdpTx(dst netip.Addr, srcPort, dstPort uint16) (UdpTxHandle, error) {
	r, err := ns.resolve(dst)
	if err != nil {
		return UdpTxHandle{}, err
	}
	return UdpTxHandle{
		tx:      udp.NewTx(r.tx, r.src, srcPort, defaultTTL),
		hw:      r.hw,
		dst4:    r.dst4,
		dstPort: dstPort,
	}, nil
}

// IcmpListen registers h to receive ICMP messages of type t arriving at
// localIP. Returns AddrNotAvailable if localIP is not bound to any
// interface in this stack.
func (ns *NetworkStack) IcmpListen(localIP netip.Addr, t icmpv4.Type, h icmpv4.Handler) error {
	_, data, ok := ns.localIface(localIP)
	if !ok {
		return stackerr.Wrapf(stackerr.AddrNotAvailable, "netstack: %s not bound to any interface", localIP)
	}
	data.ICMP.Listen(t, h)
	return nil
}

// UdpListen registers h to receive UDP datagrams addressed to (localIP,
// port). Passing port 0 allocates an ephemeral port in [32768, 61000) and
// returns it. Returns AddrNotAvailable if localIP is not bound to any
// interface in this stack, or AddrInUse if port is already bound there.
func (ns *NetworkStack) UdpListen(localIP netip.Addr, port uint16, h udp.Handler) (uint16, error) {
	_, data, ok := ns.localIface(localIP)
	if !ok {
		return 0, stackerr.Wrapf(stackerr.AddrNotAvailable, "netstack: %s not bound to any interface", localIP)
	}
	if port == 0 {
		allocated, err := allocateEphemeralPort(data.UDP)
		if err != nil {
			return 0, err
		}
		port = allocated
	} else if data.UDP.IsBound(port) {
		return 0, stackerr.Wrapf(stackerr.AddrInUse, "netstack: %s:%d already bound", localIP, port)
	}
	data.UDP.Listen(port, h)
	return port, nil
}

// maxEphemeralAttempts bounds the resampling loop in allocateEphemeralPort;
// with ~28000 ports available, collision streaks this long only happen
// under a near-exhausted port space.
const maxEphemeralAttempts = 256

// allocateEphemeralPort picks an unbound port uniformly at random from
// [ephemeralLow, ephemeralHigh), resampling on collision.
func allocateEphemeralPort(rx *udp.Rx) (uint16, error) {
	for i := 0; i < maxEphemeralAttempts; i++ {
		port := uint16(ephemeralLow + rand.IntN(ephemeralHigh-ephemeralLow))
		if !rx.IsBound(port) {
			return port, nil
		}
	}
	return 0, stackerr.Wrap(stackerr.AddrInUse, "netstack: no ephemeral port available")
}
