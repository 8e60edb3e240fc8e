package arp

import "github.com/soypat/lnetstack/ethernet"

const hardwareTypeEthernet = 1

// requestPayload builds an ARP request packet: "who has targetIP? tell
// srcIP". It implements ethernet.Payload so it can be handed straight to an
// ethernet.Tx.
type requestPayload struct {
	srcMAC   [6]byte
	srcIP    [4]byte
	targetIP [4]byte
}

func (requestPayload) Len() int                 { return sizeHeaderv4 }
func (requestPayload) EtherType() ethernet.Type { return ethernet.TypeARP }

func (p requestPayload) Build(buf []byte) (int, error) {
	if len(buf) < sizeHeaderv4 {
		return 0, errShortARP
	}
	frm := Frame{buf: buf[:sizeHeaderv4]}
	frm.SetHardware(hardwareTypeEthernet, 6)
	frm.SetProtocol(ethernet.TypeIPv4, 4)
	frm.SetOperation(OpRequest)
	senderHW, senderProto := frm.Sender4()
	*senderHW = p.srcMAC
	*senderProto = p.srcIP
	targetHW, targetProto := frm.Target4()
	*targetHW = [6]byte{} // unknown, zeroed per RFC 826
	*targetProto = p.targetIP
	return sizeHeaderv4, nil
}

// replyPayload builds an ARP reply packet answering a prior request.
type replyPayload struct {
	srcMAC    [6]byte
	srcIP     [4]byte
	targetMAC [6]byte
	targetIP  [4]byte
}

func (replyPayload) Len() int                 { return sizeHeaderv4 }
func (replyPayload) EtherType() ethernet.Type { return ethernet.TypeARP }

func (p replyPayload) Build(buf []byte) (int, error) {
	if len(buf) < sizeHeaderv4 {
		return 0, errShortARP
	}
	frm := Frame{buf: buf[:sizeHeaderv4]}
	frm.SetHardware(hardwareTypeEthernet, 6)
	frm.SetProtocol(ethernet.TypeIPv4, 4)
	frm.SetOperation(OpReply)
	senderHW, senderProto := frm.Sender4()
	*senderHW = p.srcMAC
	*senderProto = p.srcIP
	targetHW, targetProto := frm.Target4()
	*targetHW = p.targetMAC
	*targetProto = p.targetIP
	return sizeHeaderv4, nil
}
