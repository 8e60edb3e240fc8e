package ethernet

import "errors"

// Payload is an object that knows its own serialized length and can write
// itself into a caller-provided buffer. Builders compose payloads layer by
// layer: a Payload may itself be a Builder for the layer above it.
//
// Build must write up to Len() bytes starting at buf[0]. buf may be larger
// than Len() (trailing bytes are left untouched by Build) or smaller
// (Build truncates, which streaming payloads rely on).
type Payload interface {
	Len() int
	Build(buf []byte) (int, error)
	// EtherType reports the EtherType this payload should be tagged with
	// when wrapped in an Ethernet frame.
	EtherType() Type
}

// Builder composes an Ethernet II header around a Payload. The zero value
// is not usable; construct with NewBuilder.
type Builder struct {
	src, dst [6]byte
	payload  Payload
}

// NewBuilder returns a Builder that wraps payload in an Ethernet II frame
// addressed from src to dst.
func NewBuilder(src, dst [6]byte, payload Payload) Builder {
	return Builder{src: src, dst: dst, payload: payload}
}

var errBuilderNilPayload = errors.New("ethernet: builder has nil payload")

// Len returns the total serialized frame length: header plus payload.
func (b Builder) Len() int {
	if b.payload == nil {
		return 0
	}
	return sizeHeaderNoVLAN + b.payload.Len()
}

// EtherType returns TypeIPv4/TypeARP/etc, drawn from the wrapped payload.
func (b Builder) EtherType() Type {
	if b.payload == nil {
		return 0
	}
	return b.payload.EtherType()
}

// Build writes the Ethernet header into buf[0:14] and delegates the
// remaining buffer to the wrapped payload.
func (b Builder) Build(buf []byte) (int, error) {
	if b.payload == nil {
		return 0, errBuilderNilPayload
	}
	if len(buf) < sizeHeaderNoVLAN {
		return 0, errShort
	}
	copy(buf[0:6], b.dst[:])
	copy(buf[6:12], b.src[:])
	frm := Frame{buf: buf[:sizeHeaderNoVLAN]}
	frm.SetEtherType(b.payload.EtherType())
	n, err := b.payload.Build(buf[sizeHeaderNoVLAN:])
	return sizeHeaderNoVLAN + n, err
}
