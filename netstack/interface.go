package netstack

import (
	"log/slog"
	"net/netip"
	"sync"

	"github.com/soypat/lnetstack/arp"
	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/icmpv4"
	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/stackerr"
	"github.com/soypat/lnetstack/udp"
)

// Ipv4Data bundles everything owned by one local IPv4 address bound to a
// StackInterface: the network it was assigned from, and the per-protocol
// listener maps reachable through that address. Spec.md models this as a
// two-level receive demux (destination IP, then protocol); this stack
// implements the outer level by registering one ipv4.Rx per Ipv4Data
// (gated to exactly that IP) into the interface's shared ethernet.Rx,
// rather than teaching ipv4.Rx itself about multiple local addresses.
type Ipv4Data struct {
	Network netip.Prefix
	UDP     *udp.Rx
	ICMP    *icmpv4.Rx
}

// exactIPChecker implements ipv4.LocalAddrChecker for exactly one address,
// the gate that makes the per-IP ipv4.Rx registration above correct.
type exactIPChecker [4]byte

func (c exactIPChecker) IsLocalIPv4(ip [4]byte) bool { return ip == [4]byte(c) }

// StackInterface binds one host network interface into a NetworkStack: its
// own TxBarrier, ArpTable, InterfaceWorker, and the set of local IPv4
// addresses assigned to it, each with its own UDP/ICMP listener maps.
type StackInterface struct {
	Iface datalink.Interface

	barrier  *TxBarrier
	arpTable *arp.Table
	worker   *InterfaceWorker
	ethRx    *ethernet.Rx
	recv     datalink.Receiver
	log      *slog.Logger

	mtuMu sync.RWMutex
	mtu   int

	mu    sync.RWMutex
	local map[netip.Addr]*Ipv4Data

	recvDone chan struct{}
}

func newStackInterface(iface datalink.Interface, ch datalink.Channel, log *slog.Logger) *StackInterface {
	si := &StackInterface{
		Iface:    iface,
		barrier:  newTxBarrier(ch.Sender),
		arpTable: &arp.Table{},
		ethRx:    &ethernet.Rx{},
		recv:     ch.Receiver,
		log:      log,
		mtu:      iface.EffectiveMTU(),
		local:    make(map[netip.Addr]*Ipv4Data),
		recvDone: make(chan struct{}),
	}
	si.worker = newInterfaceWorker(si, log)
	// ARP listener registered before IPv4 listeners, per spec 4.3.
	si.ethRx.Register(arp.NewRx(si.worker))
	go si.receiveLoop()
	return si
}

// MTU returns the interface's current effective MTU.
func (si *StackInterface) MTU() int {
	si.mtuMu.RLock()
	defer si.mtuMu.RUnlock()
	return si.mtu
}

// SetMTU updates the interface's MTU, invalidating outstanding TxHandles:
// a send built against the old MTU may no longer be valid.
func (si *StackInterface) SetMTU(mtu int) {
	si.mtuMu.Lock()
	si.mtu = mtu
	si.mtuMu.Unlock()
	si.barrier.inc()
}

func (si *StackInterface) receiveLoop() {
	defer close(si.recvDone)
	buf := make([]byte, 65536)
	for {
		n, err := si.recv.Receive(buf)
		if err != nil {
			si.log.Info("interface: receive loop exiting", slog.String("iface", si.Iface.Name), slog.String("err", err.Error()))
			return
		}
		err = si.ethRx.Dispatch(buf[:n])
		if err != nil {
			si.log.Error("interface: dispatch error", slog.String("iface", si.Iface.Name), slog.String("err", err.Error()))
		}
	}
}

// Close tears down the interface: it abandons pending ARP waiters (so any
// blocked ipv4_tx caller unblocks with an error), bumps the barrier so
// outstanding TxHandles go stale, and joins the worker goroutine. The
// receive goroutine is expected to exit on its own once the caller closes
// the underlying datalink.Receiver; spec.md 9(c) leaves that sequencing to
// the implementer, so Close does not attempt to interrupt a blocked
// Receive call itself.
func (si *StackInterface) Close() {
	si.arpTable.AbandonWaiters()
	si.barrier.inc()
	si.worker.Shutdown()
}

// addIPv4 assigns network's address to si, creating its Ipv4Data and
// registering a per-IP ipv4.Rx into the shared ethernet.Rx. It is an error
// to assign an address already bound on this interface.
func (si *StackInterface) addIPv4(network netip.Prefix) (*Ipv4Data, error) {
	addr := network.Addr()
	if !addr.Is4() {
		return nil, stackerr.Wrap(stackerr.IllegalArgument, "netstack: only IPv4 addresses are supported")
	}
	si.mu.Lock()
	defer si.mu.Unlock()
	if _, exists := si.local[addr]; exists {
		return nil, stackerr.Wrapf(stackerr.IllegalArgument, "netstack: %s already assigned to interface %q", addr, si.Iface.Name)
	}
	data := &Ipv4Data{
		Network: network,
		UDP:     udp.NewRx(),
		ICMP:    icmpv4.NewRx(),
	}
	rx := ipv4.NewRx(exactIPChecker(addr.As4()))
	rx.Register(data.UDP)
	rx.Register(data.ICMP)
	si.ethRx.Register(rx)
	si.local[addr] = data
	return data, nil
}

// ipv4Data returns the Ipv4Data bound to ip on this interface, if any.
func (si *StackInterface) ipv4Data(ip netip.Addr) (*Ipv4Data, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	d, ok := si.local[ip]
	return d, ok
}

// closestLocalIP picks a source address for a datagram bound to dst: the
// first local network containing dst, or (per spec.md's open question)
// an arbitrary local address if none contains it. Map iteration order is
// unspecified, matching the source's own documented ambiguity here.
func (si *StackInterface) closestLocalIP(dst netip.Addr) (netip.Addr, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	var fallback netip.Addr
	haveFallback := false
	for addr, data := range si.local {
		if data.Network.Contains(dst) {
			return addr, true
		}
		if !haveFallback {
			fallback = addr
			haveFallback = true
		}
	}
	return fallback, haveFallback
}

// replyIfLocal answers an ARP request for targetIP if it is bound on this
// interface, per spec.md 4.4's ArpRequest handling.
func (si *StackInterface) replyIfLocal(requesterMAC [6]byte, requesterIP [4]byte, targetIP [4]byte) error {
	target := netip.AddrFrom4(targetIP)
	if _, ok := si.ipv4Data(target); !ok {
		return nil
	}
	reply := arp.NewReplyTx(ethernet.NewTx(si.barrier.Handle(), si.Iface.MAC), si.Iface.MAC, targetIP)
	return reply.Send(requesterMAC, requesterIP)
}

// resolveMAC returns the hardware address bound to dst, blocking on an ARP
// request/reply round trip if it is not already known. It returns an error
// if the ARP request cannot be sent, or if the interface is torn down
// (AbandonWaiters) while the call is blocked.
func (si *StackInterface) resolveMAC(dst [4]byte, srcMAC [6]byte, srcIP [4]byte) ([6]byte, error) {
	mac, waiter, ok := si.arpTable.Get(dst)
	if ok {
		return mac, nil
	}
	req := arp.NewRequestTx(ethernet.NewTx(si.barrier.Handle(), srcMAC), srcMAC, srcIP)
	if err := req.Send(dst); err != nil {
		return [6]byte{}, stackerr.Wrapf(stackerr.IoError, "netstack: arp request: %s", err)
	}
	mac, ok = <-waiter
	if !ok {
		return [6]byte{}, stackerr.Wrap(stackerr.IoError, "netstack: interface closed while awaiting ARP reply")
	}
	return mac, nil
}

// newIpv4Tx returns an ipv4.Tx sending from src over this interface's
// current TxHandle, at this interface's current MTU.
func (si *StackInterface) newIpv4Tx(src [4]byte) *ipv4.Tx {
	eth := ethernet.NewTx(si.barrier.Handle(), si.Iface.MAC)
	return ipv4.NewTx(eth, src, si.MTU())
}
