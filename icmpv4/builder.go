package icmpv4

import (
	"errors"

	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/wire"
)

var errBuildShort = errors.New("icmpv4: buffer too short to build message")

// EchoBuilder composes an ICMP echo request or reply, filling in the
// checksum. It implements ipv4.Payload.
type EchoBuilder struct {
	Reply      bool
	Identifier uint16
	Sequence   uint16
	Data       []byte
}

// Len returns the total serialized message length: header plus data.
func (b EchoBuilder) Len() int { return 8 + len(b.Data) }

// Protocol implements ipv4.Payload.
func (EchoBuilder) Protocol() ipv4.Proto { return ipv4.ProtoICMP }

// Build writes the ICMP echo header and data into buf and fills in the
// checksum.
func (b EchoBuilder) Build(buf []byte) (int, error) {
	total := b.Len()
	if len(buf) < total {
		return 0, errBuildShort
	}
	frm := FrameEcho{Frame{buf: buf[:total]}}
	t := TypeEcho
	if b.Reply {
		t = TypeEchoReply
	}
	frm.SetType(t)
	frm.SetCode(0)
	frm.SetIdentifier(b.Identifier)
	frm.SetSequenceNumber(b.Sequence)
	copy(buf[8:total], b.Data)
	frm.SetCRC(0)
	var crc wire.CRC791
	frm.CRCWrite(&crc)
	frm.SetCRC(wire.NeverZero(crc.Sum16()))
	return total, nil
}

// RawBuilder composes an arbitrary ICMP message from a pre-built body
// (type, code and type-specific fields already laid out by the caller,
// starting at byte 4). It implements ipv4.Payload. Used for messages this
// package does not model directly, such as destination-unreachable.
type RawBuilder struct {
	Type Type
	Code uint8
	Body []byte // type-specific fields and data, starting at offset 4.
}

func (b RawBuilder) Len() int { return 4 + len(b.Body) }

func (RawBuilder) Protocol() ipv4.Proto { return ipv4.ProtoICMP }

func (b RawBuilder) Build(buf []byte) (int, error) {
	total := b.Len()
	if len(buf) < total {
		return 0, errBuildShort
	}
	frm := Frame{buf: buf[:total]}
	frm.SetType(b.Type)
	frm.SetCode(b.Code)
	copy(buf[4:total], b.Body)
	frm.SetCRC(0)
	var crc wire.CRC791
	frm.CRCWrite(&crc)
	frm.SetCRC(wire.NeverZero(crc.Sum16()))
	return total, nil
}
