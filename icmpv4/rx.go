package icmpv4

import (
	"sync"

	"github.com/soypat/lnetstack/ipv4"
)

// Handler is invoked with the source IPv4 address and the full ICMP
// message (header and data). The slice aliases the receive buffer and is
// only valid for the duration of the call.
type Handler func(src [4]byte, icmpMsg []byte)

// Rx demultiplexes received ICMP packets by IcmpType, implementing
// ipv4.Listener. Listeners registered for the same type are invoked in
// registration order.
type Rx struct {
	mu        sync.Mutex
	listeners map[Type][]Handler
}

// NewRx returns an empty Rx.
func NewRx() *Rx {
	return &Rx{listeners: make(map[Type][]Handler)}
}

// Listen registers h to be called for every received message of the given
// type, in addition to any previously registered handlers for that type.
func (rx *Rx) Listen(t Type, h Handler) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	rx.listeners[t] = append(rx.listeners[t], h)
}

// Protocol implements ipv4.Listener.
func (*Rx) Protocol() ipv4.Proto { return ipv4.ProtoICMP }

// HandleDatagram implements ipv4.Listener.
func (rx *Rx) HandleDatagram(src, _ [4]byte, payload []byte) error {
	frm, err := NewFrame(payload)
	if err != nil {
		return nil
	}
	t := frm.Type()
	// Listeners are invoked while holding the lock, matching the other
	// listener maps in this stack: registration-time mutation and
	// dispatch-time iteration never interleave. Listeners must not
	// re-enter the stack on the same interface.
	rx.mu.Lock()
	defer rx.mu.Unlock()
	for _, h := range rx.listeners[t] {
		h(src, payload)
	}
	return nil
}
