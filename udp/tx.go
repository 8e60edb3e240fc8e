package udp

import "github.com/soypat/lnetstack/ipv4"

// Sender is the subset of ipv4.Tx that Tx needs to hand off built
// datagrams. Satisfied by *ipv4.Tx.
type Sender interface {
	Send(dstHW [6]byte, dst [4]byte, ttl uint8, payload ipv4.Payload) error
}

// Tx sends UDP datagrams bound to a fixed source address and port, over an
// ipv4.Tx resolved per destination hardware address by the caller.
type Tx struct {
	ip      Sender
	src     [4]byte
	srcPort uint16
	ttl     uint8
}

// NewTx returns a Tx sending datagrams from (src, srcPort) over ip.
func NewTx(ip Sender, src [4]byte, srcPort uint16, ttl uint8) Tx {
	return Tx{ip: ip, src: src, srcPort: srcPort, ttl: ttl}
}

// Send builds and sends a UDP datagram carrying payload to (dst, dstPort),
// addressed at the link layer to dstHW (the result of an ARP lookup for dst
// or for a gateway, for off-link destinations).
func (tx Tx) Send(dstHW [6]byte, dst [4]byte, dstPort uint16, payload []byte) error {
	b := NewBuilder(tx.src, dst, tx.srcPort, dstPort, payload)
	return tx.ip.Send(dstHW, dst, tx.ttl, b)
}
