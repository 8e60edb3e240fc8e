package ipv4

import (
	"bytes"
	"testing"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
)

type fakeSender struct {
	buf [1514]byte
	n   int
}

func (s *fakeSender) Send(n, frameSize int, fill datalink.FrameFiller) error {
	if n != 1 {
		panic("fakeSender only supports n=1")
	}
	s.n = frameSize
	return fill(s.buf[:frameSize])
}

type rawPayload struct {
	proto Proto
	data  []byte
}

func (p rawPayload) Len() int        { return len(p.data) }
func (p rawPayload) Protocol() Proto { return p.proto }
func (p rawPayload) Build(buf []byte) (int, error) {
	return copy(buf, p.data), nil
}

type localSet map[[4]byte]bool

func (s localSet) IsLocalIPv4(ip [4]byte) bool { return s[ip] }

func TestBuilderTxRxRoundTrip(t *testing.T) {
	srcMAC := [6]byte{1, 2, 3, 4, 5, 6}
	dstMAC := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	srcIP := [4]byte{192, 168, 1, 1}
	dstIP := [4]byte{192, 168, 1, 2}
	body := []byte("datagram payload")

	sender := &fakeSender{}
	ethTx := ethernet.NewTx(sender, srcMAC)
	tx := NewTx(ethTx, srcIP, 1500)
	if err := tx.Send(dstMAC, dstIP, 64, rawPayload{proto: ProtoUDP, data: body}); err != nil {
		t.Fatal(err)
	}

	var gotSrc, gotDst [4]byte
	var gotBody []byte
	rx := NewRx(localSet{dstIP: true})
	rx.Register(fakeListener{proto: ProtoUDP, fn: func(src, dst [4]byte, payload []byte) error {
		gotSrc, gotDst = src, dst
		gotBody = append([]byte{}, payload...)
		return nil
	}})

	var erx ethernet.Rx
	erx.Register(rx)
	if err := erx.Dispatch(sender.buf[:sender.n]); err != nil {
		t.Fatal(err)
	}
	if gotSrc != srcIP || gotDst != dstIP {
		t.Errorf("address mismatch: src=%v dst=%v", gotSrc, gotDst)
	}
	if !bytes.Equal(gotBody, body) {
		t.Errorf("payload mismatch: got %q want %q", gotBody, body)
	}
}

func TestTxMTUExceeded(t *testing.T) {
	sender := &fakeSender{}
	ethTx := ethernet.NewTx(sender, [6]byte{})
	tx := NewTx(ethTx, [4]byte{1, 2, 3, 4}, 40)
	err := tx.Send([6]byte{}, [4]byte{5, 6, 7, 8}, 64, rawPayload{proto: ProtoUDP, data: make([]byte, 100)})
	if err != errMTUExceeded {
		t.Fatalf("expected errMTUExceeded, got %v", err)
	}
}

type fakeListener struct {
	proto Proto
	fn    func(src, dst [4]byte, payload []byte) error
}

func (l fakeListener) Protocol() Proto { return l.proto }
func (l fakeListener) HandleDatagram(src, dst [4]byte, payload []byte) error {
	return l.fn(src, dst, payload)
}
