package ipv4

import (
	"errors"
	"sync/atomic"

	"github.com/soypat/lnetstack/ethernet"
)

// errMTUExceeded is returned by Tx.Send when the datagram would not fit in a
// single link-layer frame. Fragmentation is not implemented by this stack.
var errMTUExceeded = errors.New("ipv4: datagram exceeds interface MTU, fragmentation not implemented")

// Tx sends IPv4 datagrams from a fixed source address, over an
// ethernet.Tx resolved per destination hardware address by the caller
// (typically via the owning interface's ARP table).
type Tx struct {
	eth ethernet.Tx
	src [4]byte
	mtu int
	id  uint32 // incremented per datagram, truncated to 16 bits.
}

// NewTx returns a Tx sending datagrams from src over eth, refusing to build
// datagrams larger than mtu.
func NewTx(eth ethernet.Tx, src [4]byte, mtu int) *Tx {
	return &Tx{eth: eth, src: src, mtu: mtu}
}

// Send builds and sends an IPv4 datagram carrying payload to dst, addressed
// at the link layer to dstHW (the result of an ARP lookup for dst, or a
// gateway's hardware address for off-link destinations).
func (tx *Tx) Send(dstHW [6]byte, dst [4]byte, ttl uint8, payload Payload) error {
	b := NewBuilder(tx.src, dst, ttl, tx.nextID(), payload)
	if b.Len() > tx.mtu {
		return errMTUExceeded
	}
	return tx.eth.Send(dstHW, b)
}

func (tx *Tx) nextID() uint16 {
	return uint16(atomic.AddUint32(&tx.id, 1))
}
