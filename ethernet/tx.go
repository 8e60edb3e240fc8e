package ethernet

import "github.com/soypat/lnetstack/datalink"

// Tx sends Ethernet II frames over an injected datalink.Sender, tagging
// each with the given source hardware address.
type Tx struct {
	sender datalink.Sender
	src    [6]byte
}

// NewTx returns a Tx that sends frames from src over sender.
func NewTx(sender datalink.Sender, src [6]byte) Tx {
	return Tx{sender: sender, src: src}
}

// Send builds one frame wrapping payload, addressed to dst, and hands it to
// the datalink sender.
func (t Tx) Send(dst [6]byte, payload Payload) error {
	return t.SendN(dst, payload, 1)
}

// SendN sends n back-to-back frames of identical size, each built fresh
// from payload. Per spec, the datalink always writes header+size bytes per
// frame regardless of the payload's actual content length — upper layers
// encode their own length fields, so padding bytes left by a short Build
// are harmless.
func (t Tx) SendN(dst [6]byte, payload Payload, n int) error {
	b := NewBuilder(t.src, dst, payload)
	size := b.Len()
	return t.sender.Send(n, size, func(frame []byte) error {
		_, err := b.Build(frame)
		return err
	})
}
