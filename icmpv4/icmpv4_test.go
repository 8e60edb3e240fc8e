package icmpv4

import (
	"bytes"
	"testing"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/ipv4"
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

type localSet map[[4]byte]bool

func (s localSet) IsLocalIPv4(ip [4]byte) bool { return s[ip] }

func TestEchoRoundTrip(t *testing.T) {
	srcMAC := [6]byte{1, 2, 3, 4, 5, 6}
	dstMAC := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	srcIP := [4]byte{10, 0, 0, 1}
	dstIP := [4]byte{10, 0, 0, 2}
	data := []byte("ping data")

	sender := &fakeSender{}
	ethTx := ethernet.NewTx(sender, srcMAC)
	ipTx := ipv4.NewTx(ethTx, srcIP, 1500)
	tx := NewTx(ipTx, srcIP, 64)
	echo := EchoBuilder{Identifier: 42, Sequence: 1, Data: data}
	if err := tx.SendEcho(dstMAC, dstIP, echo); err != nil {
		t.Fatal(err)
	}

	var gotSrc [4]byte
	var gotMsg []byte
	irx := ipv4.NewRx(localSet{dstIP: true})
	crx := NewRx()
	crx.Listen(TypeEcho, func(src [4]byte, msg []byte) {
		gotSrc = src
		gotMsg = append([]byte{}, msg...)
	})
	irx.Register(crx)

	var erx ethernet.Rx
	erx.Register(irx)
	if err := erx.Dispatch(sender.buf[:sender.n]); err != nil {
		t.Fatal(err)
	}
	if gotSrc != srcIP {
		t.Errorf("expected source %v, got %v", srcIP, gotSrc)
	}
	got := FrameEcho{Frame{buf: gotMsg}}
	if got.Identifier() != 42 || got.SequenceNumber() != 1 {
		t.Errorf("unexpected echo fields: id=%d seq=%d", got.Identifier(), got.SequenceNumber())
	}
	if !bytes.Equal(got.Data(), data) {
		t.Errorf("data mismatch: got %q want %q", got.Data(), data)
	}
}

func TestTwoListenersBothReceive(t *testing.T) {
	srcMAC := [6]byte{1, 2, 3, 4, 5, 6}
	dstMAC := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	srcIP := [4]byte{10, 0, 0, 1}
	dstIP := [4]byte{10, 0, 0, 2}

	sender := &fakeSender{}
	ethTx := ethernet.NewTx(sender, srcMAC)
	ipTx := ipv4.NewTx(ethTx, srcIP, 1500)
	tx := NewTx(ipTx, srcIP, 64)
	if err := tx.SendEcho(dstMAC, dstIP, EchoBuilder{Identifier: 1, Sequence: 1}); err != nil {
		t.Fatal(err)
	}

	var calls int
	irx := ipv4.NewRx(localSet{dstIP: true})
	crx := NewRx()
	crx.Listen(TypeEcho, func(src [4]byte, msg []byte) { calls++ })
	crx.Listen(TypeEcho, func(src [4]byte, msg []byte) { calls++ })
	irx.Register(crx)

	var erx ethernet.Rx
	erx.Register(irx)
	if err := erx.Dispatch(sender.buf[:sender.n]); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected both listeners to fire, got %d calls", calls)
	}
}
