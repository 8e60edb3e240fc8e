package arp

import (
	"errors"
	"strconv"
)

const (
	sizeHeader   = 8
	sizeHeaderv4 = sizeHeader + 6*2 + 4*2
	sizeHeaderv6 = sizeHeader + 6*2 + 16*2
)

var (
	errShortARP       = errors.New("packet too short to be ARP")
	errARPUnsupported = errors.New("ARP operation not supported")
)

// Operation represents the type of ARP packet, either request or reply/response.
type Operation uint8

const (
	OpRequest Operation = 1 // request
	OpReply   Operation = 2 // reply
)

// String returns "request" or "reply", or "Operation(n)" for any other value.
func (op Operation) String() string {
	switch op {
	case OpRequest:
		return "request"
	case OpReply:
		return "reply"
	default:
		return "Operation(" + strconv.Itoa(int(op)) + ")"
	}
}
