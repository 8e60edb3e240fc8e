package arp

import (
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/wire"
)

// Notifier is how Rx hands learned and requested bindings off to the
// owning interface's worker. Implementations must not block for long: Rx
// runs on the interface's receive goroutine, and spec requires ARP updates
// to be serialized through the worker's own queue rather than applied
// in-line on the receive path.
type Notifier interface {
	// UpdateArpTable reports that senderIP is reachable at senderMAC,
	// learned from a reply or gratuitous announcement, or from the sender
	// fields of a request.
	UpdateArpTable(senderIP [4]byte, senderMAC [6]byte)
	// ArpRequest reports that senderIP (at senderMAC) is asking who has
	// targetIP. The worker replies if targetIP is locally owned.
	ArpRequest(senderIP [4]byte, senderMAC [6]byte, targetIP [4]byte)
}

// Rx demultiplexes received ARP packets, implementing ethernet.Listener.
type Rx struct {
	notify Notifier
}

// NewRx returns an Rx that reports learned/requested bindings to notify.
func NewRx(notify Notifier) *Rx {
	return &Rx{notify: notify}
}

// EtherType implements ethernet.Listener.
func (*Rx) EtherType() ethernet.Type { return ethernet.TypeARP }

// HandleFrame implements ethernet.Listener.
func (rx *Rx) HandleFrame(_, _ [6]byte, payload []byte) error {
	frm, err := NewFrame(payload)
	if err != nil {
		return nil // too short; silent drop.
	}
	var vld wire.Validator
	frm.ValidateSize(&vld)
	if vld.HasError() {
		return nil
	}
	htype, hlen := frm.Hardware()
	ptype, plen := frm.Protocol()
	if htype != hardwareTypeEthernet || hlen != 6 || ptype != ethernet.TypeIPv4 || plen != 4 {
		return nil // IPv6/other ARP variants: not handled by this stack.
	}
	senderHW, senderIP := frm.Sender4()
	switch frm.Operation() {
	case OpReply:
		rx.notify.UpdateArpTable(*senderIP, *senderHW)
	case OpRequest:
		_, targetIP := frm.Target4()
		rx.notify.UpdateArpTable(*senderIP, *senderHW)
		rx.notify.ArpRequest(*senderIP, *senderHW, *targetIP)
	default:
		return errARPUnsupported
	}
	return nil
}
