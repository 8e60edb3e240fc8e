package udp

import (
	"sync"

	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/wire"
)

// Handler is invoked with the source/destination IPv4 address, the source
// port the datagram arrived from, and the payload. The payload slice aliases
// the receive buffer and is only valid for the duration of the call.
type Handler func(src, dst [4]byte, srcPort uint16, payload []byte)

// Rx demultiplexes received UDP datagrams by destination port, implementing
// ipv4.Listener. Datagrams addressed to a port with no registered handler
// are dropped silently, per spec.
type Rx struct {
	mu       sync.RWMutex
	handlers map[uint16]Handler
}

// NewRx returns an empty Rx.
func NewRx() *Rx {
	return &Rx{handlers: make(map[uint16]Handler)}
}

// Listen registers h to receive datagrams addressed to port. A second call
// for the same port replaces the previous handler.
func (rx *Rx) Listen(port uint16, h Handler) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	rx.handlers[port] = h
}

// Unlisten removes the handler registered for port, if any.
func (rx *Rx) Unlisten(port uint16) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	delete(rx.handlers, port)
}

// IsBound reports whether port already has a registered handler.
func (rx *Rx) IsBound(port uint16) bool {
	rx.mu.RLock()
	defer rx.mu.RUnlock()
	_, ok := rx.handlers[port]
	return ok
}

// Protocol implements ipv4.Listener.
func (*Rx) Protocol() ipv4.Proto { return ipv4.ProtoUDP }

// HandleDatagram implements ipv4.Listener.
func (rx *Rx) HandleDatagram(src, dst [4]byte, payload []byte) error {
	ufrm, err := NewFrame(payload)
	if err != nil {
		return nil
	}
	var vld wire.Validator
	ufrm.ValidateSize(&vld)
	if vld.HasError() {
		return nil
	}
	dstPort := ufrm.DestinationPort()
	// Held across the call, not just the lookup: a listener must not
	// re-enter the stack on the same interface, matching ICMP's dispatch
	// discipline.
	rx.mu.RLock()
	defer rx.mu.RUnlock()
	h := rx.handlers[dstPort]
	if h == nil {
		return nil // unknown port: silent drop.
	}
	h(src, dst, ufrm.SourcePort(), ufrm.Payload())
	return nil
}
