package netstack

import (
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/soypat/lnetstack/arp"
	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
	"github.com/soypat/lnetstack/icmpv4"
	"github.com/soypat/lnetstack/ipv4"
	"github.com/soypat/lnetstack/stackerr"
	"github.com/soypat/lnetstack/udp"
)

// frameCapture is a datalink.Sender that records every frame built through
// it, for inspection or for re-injection as another peer's outgoing frame.
type frameCapture struct {
	mu     sync.Mutex
	frames [][]byte
}

func (fc *frameCapture) Send(n, frameSize int, fill datalink.FrameFiller) error {
	for i := 0; i < n; i++ {
		buf := make([]byte, frameSize)
		if err := fill(buf); err != nil {
			return err
		}
		fc.mu.Lock()
		fc.frames = append(fc.frames, buf)
		fc.mu.Unlock()
	}
	return nil
}

func (fc *frameCapture) last() []byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.frames) == 0 {
		return nil
	}
	return fc.frames[len(fc.frames)-1]
}

func (fc *frameCapture) count() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.frames)
}

// chanReceiver is a datalink.Receiver fed by injected frames from a test.
type chanReceiver struct {
	in chan []byte
}

func newChanReceiver() *chanReceiver {
	return &chanReceiver{in: make(chan []byte, 16)}
}

func (cr *chanReceiver) inject(frame []byte) {
	cr.in <- frame
}

func (cr *chanReceiver) Receive(buf []byte) (int, error) {
	frame, ok := <-cr.in
	if !ok {
		return 0, errors.New("chanReceiver: closed")
	}
	return copy(buf, frame), nil
}

func (cr *chanReceiver) Close() {
	close(cr.in)
}

var (
	ourMAC  = [6]byte{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01}
	peerMAC = [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	ourIP   = [4]byte{10, 0, 0, 1}
	peerIP  = [4]byte{10, 0, 0, 2}
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// buildARPReply builds the raw Ethernet frame a peer at (peerMAC, peerIP)
// would send in reply to an ARP request from (ourMAC, ourIP).
func buildARPReply(t *testing.T) []byte {
	t.Helper()
	var fc frameCapture
	eth := ethernet.NewTx(&fc, peerMAC)
	err := arp.NewReplyTx(eth, peerMAC, peerIP).Send(ourMAC, ourIP)
	if err != nil {
		t.Fatalf("building arp reply: %v", err)
	}
	frames := fc.frames
	if len(frames) != 1 {
		t.Fatalf("expected exactly one arp reply frame, got %d", len(frames))
	}
	return frames[0]
}

func newTestStack(t *testing.T) (*NetworkStack, *StackInterface, *frameCapture, *chanReceiver) {
	t.Helper()
	sender := &frameCapture{}
	recv := newChanReceiver()
	ns := New(testLogger())
	iface := datalink.Interface{Name: "eth0", MAC: ourMAC, MTU: 1500}
	si, err := ns.AddInterface(iface, datalink.Channel{Sender: sender, Receiver: recv})
	if err != nil {
		t.Fatalf("AddInterface: %v", err)
	}
	network := netip.MustParsePrefix("10.0.0.1/24")
	if err := ns.AddIPv4("eth0", network); err != nil {
		t.Fatalf("AddIPv4: %v", err)
	}
	t.Cleanup(func() {
		si.Close()
		recv.Close()
	})
	return ns, si, sender, recv
}

// waitForCount polls sender until it has recorded at least n frames, or
// fails the test after a short deadline.
func waitForCount(t *testing.T, sender *frameCapture, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sender.count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, got %d", n, sender.count())
}

// S1: udp_tx blocks on ARP, completes once a reply is injected, and the
// resulting handle sends a well-formed UDP datagram to the learned MAC.
func TestScenarioS1_UdpTxResolvesARPThenSends(t *testing.T) {
	ns, _, sender, recv := newTestStack(t)
	dst := netip.AddrFrom4(peerIP)

	type result struct {
		h   UdpTxHandle
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := ns.UdpTx(dst, 5000, 53)
		done <- result{h, err}
	}()

	waitForCount(t, sender, 1) // the ARP request.
	reqFrame := sender.last()
	ethFrm, err := ethernet.NewFrame(reqFrame)
	if err != nil {
		t.Fatalf("parsing arp request frame: %v", err)
	}
	dstMAC := *ethFrm.DestinationHardwareAddr()
	if dstMAC != [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff} {
		t.Fatalf("expected arp request to broadcast MAC, got %x", dstMAC)
	}

	recv.inject(buildARPReply(t))

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("UdpTx: %v", r.err)
		}
		if err := r.h.Send([]byte{1, 2, 3}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for UdpTx to unblock after ARP reply")
	}

	waitForCount(t, sender, 2) // the ARP request plus the UDP datagram.
	udpFrame := sender.last()
	ethFrm, err = ethernet.NewFrame(udpFrame)
	if err != nil {
		t.Fatalf("parsing udp frame: %v", err)
	}
	if got := *ethFrm.DestinationHardwareAddr(); got != peerMAC {
		t.Fatalf("expected frame addressed to learned MAC %x, got %x", peerMAC, got)
	}
	ipfrm, err := ipv4.NewFrame(ethFrm.Payload())
	if err != nil {
		t.Fatalf("parsing ipv4: %v", err)
	}
	ufrm, err := udp.NewFrame(ipfrm.Payload())
	if err != nil {
		t.Fatalf("parsing udp: %v", err)
	}
	if got := ufrm.Payload(); string(got) != "\x01\x02\x03" {
		t.Fatalf("unexpected udp payload %v", got)
	}
}

// S2: a TxHandle obtained before an MTU change fails with InvalidTx
// afterward.
func TestScenarioS2_SetMTUInvalidatesHandle(t *testing.T) {
	ns, si, sender, recv := newTestStack(t)
	dst := netip.AddrFrom4(peerIP)

	resolved := make(chan Ipv4TxHandle, 1)
	go func() {
		h, err := ns.Ipv4Tx(dst)
		if err != nil {
			t.Errorf("Ipv4Tx: %v", err)
			return
		}
		resolved <- h
	}()

	waitForCount(t, sender, 1)
	recv.inject(buildARPReply(t))

	var h Ipv4TxHandle
	select {
	case h = <-resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Ipv4Tx to resolve")
	}

	si.SetMTU(600)
	err := h.Send(rawPayload{data: []byte("x"), proto: ipv4.ProtoUDP})
	if !errors.Is(err, stackerr.InvalidTx) {
		t.Fatalf("expected InvalidTx after MTU change, got %v", err)
	}
}

type rawPayload struct {
	data  []byte
	proto ipv4.Proto
}

func (p rawPayload) Len() int             { return len(p.data) }
func (p rawPayload) Protocol() ipv4.Proto { return p.proto }
func (p rawPayload) Build(buf []byte) (int, error) {
	return copy(buf, p.data), nil
}

// S3: UdpListen with port 0 allocates an ephemeral port in range; a second
// call with that exact port returns AddrInUse.
func TestScenarioS3_EphemeralPortThenCollision(t *testing.T) {
	ns, _, _, _ := newTestStack(t)
	port, err := ns.UdpListen(netip.AddrFrom4(ourIP), 0, func([4]byte, [4]byte, uint16, []byte) {})
	if err != nil {
		t.Fatalf("UdpListen: %v", err)
	}
	if port < ephemeralLow || port >= ephemeralHigh {
		t.Fatalf("port %d out of ephemeral range", port)
	}
	_, err = ns.UdpListen(netip.AddrFrom4(ourIP), port, func([4]byte, [4]byte, uint16, []byte) {})
	if !errors.Is(err, stackerr.AddrInUse) {
		t.Fatalf("expected AddrInUse, got %v", err)
	}
}

// S4: adding the same IPv4 network twice fails the second time.
func TestScenarioS4_DuplicateAddIPv4(t *testing.T) {
	ns, _, _, _ := newTestStack(t)
	err := ns.AddIPv4("eth0", netip.MustParsePrefix("10.0.0.1/24"))
	if !errors.Is(err, stackerr.IllegalArgument) {
		t.Fatalf("expected IllegalArgument, got %v", err)
	}
}

// S5: resolving a destination with no matching route fails with
// NoRouteToHost.
func TestScenarioS5_NoRoute(t *testing.T) {
	ns, _, _, _ := newTestStack(t)
	_, err := ns.Ipv4Tx(netip.MustParseAddr("8.8.8.8"))
	if !errors.Is(err, stackerr.NoRouteToHost) {
		t.Fatalf("expected NoRouteToHost, got %v", err)
	}
}

// S6: two listeners registered on the same ICMP type both fire, in
// registration order.
func TestScenarioS6_TwoIcmpListenersBothFire(t *testing.T) {
	ns, _, _, recv := newTestStack(t)
	var mu sync.Mutex
	var order []int
	record := func(i int) icmpv4.Handler {
		return func([4]byte, []byte) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}
	if err := ns.IcmpListen(netip.AddrFrom4(ourIP), icmpv4.TypeEcho, record(1)); err != nil {
		t.Fatalf("IcmpListen 1: %v", err)
	}
	if err := ns.IcmpListen(netip.AddrFrom4(ourIP), icmpv4.TypeEcho, record(2)); err != nil {
		t.Fatalf("IcmpListen 2: %v", err)
	}

	var fc frameCapture
	eth := ethernet.NewTx(&fc, peerMAC)
	ipTx := ipv4.NewTx(eth, peerIP, 1500)
	echo := icmpv4.EchoBuilder{Identifier: 1, Sequence: 1, Data: []byte("ping")}
	if err := ipTx.Send(ourMAC, ourIP, 64, echo); err != nil {
		t.Fatalf("building echo request: %v", err)
	}
	recv.inject(fc.last())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("expected both listeners to fire, got %v", order)
	}
	if order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected registration-order invocation [1 2], got %v", order)
	}
}
