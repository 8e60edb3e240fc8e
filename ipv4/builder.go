package ipv4

import (
	"errors"

	"github.com/soypat/lnetstack/ethernet"
)

// Payload is implemented by transport-layer builders (UDP, ICMP) that can be
// carried in an IPv4 datagram.
type Payload interface {
	Len() int
	Protocol() Proto
	Build(buf []byte) (int, error)
}

// Builder composes an IPv4 header (no options) around a Payload and fills in
// the header checksum. It implements ethernet.Payload, so it can be handed
// straight to an ethernet.Tx. Fragmentation is not implemented: callers must
// keep Len() within the outgoing interface's MTU.
type Builder struct {
	src, dst [4]byte
	ttl      uint8
	id       uint16
	payload  Payload
}

// NewBuilder returns a Builder for a datagram from src to dst with the given
// TTL and identification field, carrying payload.
func NewBuilder(src, dst [4]byte, ttl uint8, id uint16, payload Payload) Builder {
	return Builder{src: src, dst: dst, ttl: ttl, id: id, payload: payload}
}

var errBuilderNilPayload = errors.New("ipv4: builder has nil payload")

// EtherType implements ethernet.Payload.
func (Builder) EtherType() ethernet.Type { return ethernet.TypeIPv4 }

// Len returns the total serialized datagram length: header plus payload.
func (b Builder) Len() int {
	if b.payload == nil {
		return 0
	}
	return sizeHeader + b.payload.Len()
}

// Build writes the IPv4 header into buf and delegates the remaining buffer
// to the wrapped payload, then fills in the header checksum.
func (b Builder) Build(buf []byte) (int, error) {
	if b.payload == nil {
		return 0, errBuilderNilPayload
	}
	total := b.Len()
	if len(buf) < total {
		return 0, errShort
	}
	frm := Frame{buf: buf[:total]}
	frm.ClearHeader()
	frm.SetVersionAndIHL(4, sizeHeader/4)
	frm.SetTotalLength(uint16(total))
	frm.SetID(b.id)
	frm.SetTTL(b.ttl)
	frm.SetProtocol(b.payload.Protocol())
	*frm.SourceAddr() = b.src
	*frm.DestinationAddr() = b.dst
	_, err := b.payload.Build(buf[sizeHeader:total])
	if err != nil {
		return 0, err
	}
	frm.SetCRC(frm.CalculateHeaderCRC())
	return total, nil
}
