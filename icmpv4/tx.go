package icmpv4

import "github.com/soypat/lnetstack/ipv4"

// Sender is the subset of ipv4.Tx that Tx needs to hand off built messages.
// Satisfied by *ipv4.Tx.
type Sender interface {
	Send(dstHW [6]byte, dst [4]byte, ttl uint8, payload ipv4.Payload) error
}

// Tx sends ICMP messages from a fixed source address, over an ipv4.Tx
// resolved per destination hardware address by the caller. Only the send
// path is required by this stack: ICMP handling otherwise flows entirely
// through listeners registered on Rx.
type Tx struct {
	ip  Sender
	src [4]byte
	ttl uint8
}

// NewTx returns a Tx sending messages from src over ip.
func NewTx(ip Sender, src [4]byte, ttl uint8) Tx {
	return Tx{ip: ip, src: src, ttl: ttl}
}

// Send builds and sends an arbitrary ICMP message to dst, addressed at the
// link layer to dstHW (the result of an ARP lookup for dst or for a
// gateway, for off-link destinations).
func (tx Tx) Send(dstHW [6]byte, dst [4]byte, payload ipv4.Payload) error {
	return tx.ip.Send(dstHW, dst, tx.ttl, payload)
}

// SendEcho is a convenience wrapper building and sending an echo
// request/reply in one call.
func (tx Tx) SendEcho(dstHW [6]byte, dst [4]byte, echo EchoBuilder) error {
	return tx.Send(dstHW, dst, echo)
}
