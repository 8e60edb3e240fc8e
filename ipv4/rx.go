package ipv4

import (
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/wire"
)

// Listener is implemented by transport-layer receivers (UDP, ICMP)
// registered against a protocol number.
type Listener interface {
	Protocol() Proto
	HandleDatagram(src, dst [4]byte, payload []byte) error
}

// LocalAddrChecker reports whether ip is owned by the local interface. It is
// satisfied by the interface's local-address set; datagrams addressed
// elsewhere (and not broadcast) are dropped before reaching any Listener.
type LocalAddrChecker interface {
	IsLocalIPv4(ip [4]byte) bool
}

// Rx demultiplexes received IPv4 datagrams by protocol number, implementing
// ethernet.Listener. Datagrams addressed to an IP this interface does not
// own are dropped without reaching any registered Listener.
type Rx struct {
	local     LocalAddrChecker
	listeners []Listener
}

// NewRx returns an Rx that accepts datagrams addressed to IPs accepted by
// local.
func NewRx(local LocalAddrChecker) *Rx {
	return &Rx{local: local}
}

// Register adds l to the dispatch table for its protocol. Multiple
// listeners may register for the same protocol; all are invoked, in
// registration order.
func (rx *Rx) Register(l Listener) {
	rx.listeners = append(rx.listeners, l)
}

// EtherType implements ethernet.Listener.
func (*Rx) EtherType() ethernet.Type { return ethernet.TypeIPv4 }

// HandleFrame implements ethernet.Listener.
func (rx *Rx) HandleFrame(_, _ [6]byte, payload []byte) error {
	frm, err := NewFrame(payload)
	if err != nil {
		return nil
	}
	var vld wire.Validator
	frm.ValidateExceptCRC(&vld)
	if vld.HasError() {
		return nil
	}
	dst := *frm.DestinationAddr()
	if rx.local != nil && !rx.local.IsLocalIPv4(dst) && dst != broadcast4 {
		return nil // not ours to receive.
	}
	src := *frm.SourceAddr()
	proto := frm.Protocol()
	body := frm.Payload()
	var firstErr error
	for _, l := range rx.listeners {
		if l.Protocol() == proto {
			err := l.HandleDatagram(src, dst, body)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var broadcast4 = [4]byte{0xff, 0xff, 0xff, 0xff}
