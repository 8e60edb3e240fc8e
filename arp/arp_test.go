package arp

import (
	"testing"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/ethernet"
)

type fakeSender struct {
	buf [64]byte
	n   int
}

func (s *fakeSender) Send(n, frameSize int, fill datalink.FrameFiller) error {
	if n != 1 {
		panic("fakeSender only supports n=1")
	}
	s.n = frameSize
	return fill(s.buf[:frameSize])
}

type fakeNotifier struct {
	updated []struct {
		ip  [4]byte
		mac [6]byte
	}
	requests []struct {
		ip  [4]byte
		mac [6]byte
		tgt [4]byte
	}
}

func (n *fakeNotifier) UpdateArpTable(ip [4]byte, mac [6]byte) {
	n.updated = append(n.updated, struct {
		ip  [4]byte
		mac [6]byte
	}{ip, mac})
}

func (n *fakeNotifier) ArpRequest(ip [4]byte, mac [6]byte, tgt [4]byte) {
	n.requests = append(n.requests, struct {
		ip  [4]byte
		mac [6]byte
		tgt [4]byte
	}{ip, mac, tgt})
}

func TestRequestReplyRoundTrip(t *testing.T) {
	requesterMAC := [6]byte{1, 2, 3, 4, 5, 6}
	requesterIP := [4]byte{10, 0, 0, 1}
	targetIP := [4]byte{10, 0, 0, 2}

	sender := &fakeSender{}
	eth := ethernet.NewTx(sender, requesterMAC)
	reqTx := NewRequestTx(eth, requesterMAC, requesterIP)
	if err := reqTx.Send(targetIP); err != nil {
		t.Fatal(err)
	}

	notify := &fakeNotifier{}
	rx := NewRx(notify)
	if err := rx.HandleFrame(requesterMAC, broadcastMAC, sender.buf[ethernetHeaderLen:sender.n]); err != nil {
		t.Fatal(err)
	}
	if len(notify.requests) != 1 {
		t.Fatalf("expected 1 ArpRequest callback, got %d", len(notify.requests))
	}
	got := notify.requests[0]
	if got.ip != requesterIP || got.mac != requesterMAC || got.tgt != targetIP {
		t.Errorf("unexpected request notification: %+v", got)
	}

	// Now the target answers with a reply.
	targetMAC := [6]byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	sender2 := &fakeSender{}
	eth2 := ethernet.NewTx(sender2, targetMAC)
	replyTx := NewReplyTx(eth2, targetMAC, targetIP)
	if err := replyTx.Send(requesterMAC, requesterIP); err != nil {
		t.Fatal(err)
	}

	notify2 := &fakeNotifier{}
	rx2 := NewRx(notify2)
	if err := rx2.HandleFrame(targetMAC, requesterMAC, sender2.buf[ethernetHeaderLen:sender2.n]); err != nil {
		t.Fatal(err)
	}
	if len(notify2.updated) != 1 {
		t.Fatalf("expected 1 UpdateArpTable callback, got %d", len(notify2.updated))
	}
	if notify2.updated[0].ip != targetIP || notify2.updated[0].mac != targetMAC {
		t.Errorf("unexpected update notification: %+v", notify2.updated[0])
	}
}

const ethernetHeaderLen = 14
