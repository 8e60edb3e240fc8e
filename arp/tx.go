package arp

import "github.com/soypat/lnetstack/ethernet"

// broadcastMAC is the destination used for ARP requests: every host on the
// segment receives them.
var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// RequestTx sends ARP requests over an ethernet.Tx, always to the broadcast
// hardware address.
type RequestTx struct {
	eth    ethernet.Tx
	srcMAC [6]byte
	srcIP  [4]byte
}

// NewRequestTx returns a RequestTx sending as (srcMAC, srcIP) over eth.
func NewRequestTx(eth ethernet.Tx, srcMAC [6]byte, srcIP [4]byte) RequestTx {
	return RequestTx{eth: eth, srcMAC: srcMAC, srcIP: srcIP}
}

// Send broadcasts an ARP request asking who has targetIP.
func (tx RequestTx) Send(targetIP [4]byte) error {
	return tx.eth.Send(broadcastMAC, requestPayload{
		srcMAC:   tx.srcMAC,
		srcIP:    tx.srcIP,
		targetIP: targetIP,
	})
}

// ReplyTx sends unicast ARP replies over an ethernet.Tx.
type ReplyTx struct {
	eth    ethernet.Tx
	srcMAC [6]byte
	srcIP  [4]byte
}

// NewReplyTx returns a ReplyTx answering as (srcMAC, srcIP) over eth.
func NewReplyTx(eth ethernet.Tx, srcMAC [6]byte, srcIP [4]byte) ReplyTx {
	return ReplyTx{eth: eth, srcMAC: srcMAC, srcIP: srcIP}
}

// Send unicasts a reply to requesterMAC, answering on behalf of srcIP and
// telling the requester (requesterIP, requesterMAC) that srcIP lives at
// this interface's MAC.
func (tx ReplyTx) Send(requesterMAC [6]byte, requesterIP [4]byte) error {
	return tx.eth.Send(requesterMAC, replyPayload{
		srcMAC:    tx.srcMAC,
		srcIP:     tx.srcIP,
		targetMAC: requesterMAC,
		targetIP:  requesterIP,
	})
}
