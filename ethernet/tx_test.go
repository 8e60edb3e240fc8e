package ethernet

import (
	"bytes"
	"testing"

	"github.com/soypat/lnetstack/datalink"
)

// fakeSender implements datalink.Sender by writing each built frame into a
// fixed-size buffer it owns, for use in round-trip tests.
type fakeSender struct {
	buf [1514]byte
	n   int
}

func (s *fakeSender) Send(n, frameSize int, fill datalink.FrameFiller) error {
	if n != 1 {
		panic("fakeSender only supports n=1")
	}
	err := fill(s.buf[:frameSize])
	s.n = frameSize
	return err
}

type rawPayload struct {
	et   Type
	data []byte
}

func (p rawPayload) Len() int        { return len(p.data) }
func (p rawPayload) EtherType() Type { return p.et }
func (p rawPayload) Build(buf []byte) (int, error) {
	n := copy(buf, p.data)
	return n, nil
}

func TestTxRxRoundTrip(t *testing.T) {
	src := [6]byte{1, 2, 3, 4, 5, 6}
	dst := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	payload := []byte("hello ethernet")

	sender := &fakeSender{}
	tx := NewTx(sender, src)
	err := tx.Send(dst, rawPayload{et: 0x1234, data: payload})
	if err != nil {
		t.Fatal(err)
	}

	var got []byte
	var gotSrc, gotDst [6]byte
	var rx Rx
	rx.Register(fakeListener{et: 0x1234, fn: func(s, d [6]byte, p []byte) error {
		gotSrc, gotDst = s, d
		got = append([]byte{}, p[:len(payload)]...)
		return nil
	}})

	if err := rx.Dispatch(sender.buf[:sender.n]); err != nil {
		t.Fatal(err)
	}
	if gotSrc != src {
		t.Errorf("src mismatch: got %v want %v", gotSrc, src)
	}
	if gotDst != dst {
		t.Errorf("dst mismatch: got %v want %v", gotDst, dst)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch: got %q want %q", got, payload)
	}
}

type fakeListener struct {
	et Type
	fn func(src, dst [6]byte, payload []byte) error
}

func (l fakeListener) EtherType() Type { return l.et }
func (l fakeListener) HandleFrame(src, dst [6]byte, payload []byte) error {
	return l.fn(src, dst, payload)
}
