package udp

import (
	"errors"

	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/wire"
)

// Builder composes a UDP datagram and fills in its checksum over the IPv4
// pseudo header implied by src/dst. It implements ipv4.Payload, so it can
// be handed straight to an ipv4.Builder or ipv4.Tx.
type Builder struct {
	src, dst         [4]byte
	srcPort, dstPort uint16
	payload          []byte
}

// NewBuilder returns a Builder for a datagram from (src, srcPort) to
// (dst, dstPort) carrying payload.
func NewBuilder(src, dst [4]byte, srcPort, dstPort uint16, payload []byte) Builder {
	return Builder{src: src, dst: dst, srcPort: srcPort, dstPort: dstPort, payload: payload}
}

var errBuildShort = errors.New("udp: buffer too short to build datagram")

// Len returns the total serialized datagram length: header plus payload.
func (b Builder) Len() int { return sizeHeader + len(b.payload) }

// Protocol implements ipv4.Payload.
func (Builder) Protocol() ipv4.Proto { return ipv4.ProtoUDP }

// Build writes the UDP header and payload into buf and fills in the
// checksum.
func (b Builder) Build(buf []byte) (int, error) {
	total := b.Len()
	if len(buf) < total {
		return 0, errBuildShort
	}
	ufrm := Frame{buf: buf[:total]}
	ufrm.ClearHeader()
	ufrm.SetSourcePort(b.srcPort)
	ufrm.SetDestinationPort(b.dstPort)
	ufrm.SetLength(uint16(total))
	copy(buf[sizeHeader:total], b.payload)
	crc := ufrm.CalculateIPv4Checksum(func(crc *wire.CRC791) {
		crc.Write(b.src[:])
		crc.Write(b.dst[:])
		crc.AddUint16(uint16(ipv4.ProtoUDP))
	})
	ufrm.SetCRC(crc)
	return total, nil
}
