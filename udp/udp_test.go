package udp

import (
	"bytes"
	"testing"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/wire"
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

func TestTxRxRoundTrip(t *testing.T) {
	srcMAC := [6]byte{1, 2, 3, 4, 5, 6}
	dstMAC := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	srcIP := [4]byte{10, 0, 0, 1}
	dstIP := [4]byte{10, 0, 0, 2}
	payload := []byte("hello udp")

	sender := &fakeSender{}
	ethTx := ethernet.NewTx(sender, srcMAC)
	ipTx := ipv4.NewTx(ethTx, srcIP, 1500)
	tx := NewTx(ipTx, srcIP, 5555, 64)
	if err := tx.Send(dstMAC, dstIP, 7777, payload); err != nil {
		t.Fatal(err)
	}

	var gotSrc uint16
	var gotPayload []byte
	urx := NewRx()
	urx.Listen(7777, func(src, dst [4]byte, srcPort uint16, p []byte) {
		gotSrc = srcPort
		gotPayload = append([]byte{}, p...)
	})

	irx := ipv4.NewRx(localSet{dstIP: true})
	irx.Register(urx)

	var erx ethernet.Rx
	erx.Register(irx)
	if err := erx.Dispatch(sender.buf[:sender.n]); err != nil {
		t.Fatal(err)
	}
	if gotSrc != 5555 {
		t.Errorf("expected source port 5555, got %d", gotSrc)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload mismatch: got %q want %q", gotPayload, payload)
	}
}

func TestBuilderChecksumDetectsCorruption(t *testing.T) {
	src := [4]byte{1, 1, 1, 1}
	dst := [4]byte{2, 2, 2, 2}
	pseudo := func(crc *wire.CRC791) {
		crc.Write(src[:])
		crc.Write(dst[:])
		crc.AddUint16(uint16(ipv4.ProtoUDP))
	}

	b := NewBuilder(src, dst, 1111, 2222, []byte("abc"))
	var buf [64]byte
	n, err := b.Build(buf[:])
	if err != nil {
		t.Fatal(err)
	}
	ufrm := Frame{buf: buf[:n]}
	want := ufrm.CRC()
	if want == 0 {
		t.Fatal("checksum should never be transmitted as zero")
	}
	ufrm.SetCRC(0)
	if got := ufrm.CalculateIPv4Checksum(pseudo); got != want {
		t.Errorf("recomputed checksum %#x does not match transmitted checksum %#x", got, want)
	}

	buf[n-1] ^= 0xff // corrupt last payload byte.
	ufrm.SetCRC(0)
	if got := ufrm.CalculateIPv4Checksum(pseudo); got == want {
		t.Error("checksum did not change after payload corruption")
	}
}
