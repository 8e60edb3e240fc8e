// Package datalink defines the raw-frame send/receive contract the stack
// consumes from the host network interface. It is the external collaborator
// spec.md calls the injected sender/receiver pair: this package only
// describes the boundary, it ships no implementation of its own. See
// internal/linktap for a concrete Linux TAP-backed adapter.
package datalink

import "errors"

// ErrBufferFull is returned by a Sender when it cannot accommodate a send
// request of the requested size, corresponding to the "None" case of the
// datalink contract in spec.md section 6.
var ErrBufferFull = errors.New("datalink: insufficient buffer for send")

// FrameFiller writes exactly len(frame) bytes into frame. It is invoked once
// per frame requested from Sender.Send.
type FrameFiller func(frame []byte) error

// Sender transmits raw Ethernet frames. Send must write n frames of
// frameSize bytes each, invoking fill once per frame; fill is expected to
// write the same logical content into each frame unless the caller's
// FrameFiller closes over per-frame state (see ethernet.Tx.SendN, which
// uses n>1 to repeat one built frame across several sends).
//
// Returning ErrBufferFull signals the datalink could not allocate buffer
// space for the request; any other non-nil error is an I/O failure.
type Sender interface {
	Send(n, frameSize int, fill FrameFiller) error
}

// Receiver yields raw frames as they arrive. Receive blocks until a frame is
// available, copies it into buf, and returns its length. It returns an
// error (commonly net.ErrClosed-shaped) once the underlying channel is
// closed, which a receive loop treats as its signal to exit.
type Receiver interface {
	Receive(buf []byte) (int, error)
}

// Interface is a handle identifying a host NIC the stack binds to.
type Interface struct {
	Name string
	MAC  [6]byte
	// MTU is the maximum Ethernet payload size (not including the 14 byte
	// header). Defaults to 1500 when zero.
	MTU int
}

// EffectiveMTU returns iface.MTU, or the Ethernet default of 1500 if unset.
func (iface Interface) EffectiveMTU() int {
	if iface.MTU <= 0 {
		return 1500
	}
	return iface.MTU
}

// Channel is an injected raw datalink pair: a Sender to transmit frames and
// a Receiver to read them, both bound to the same Interface. It is consumed
// (not retained in any other form) when the interface is added to a
// NetworkStack.
type Channel struct {
	Sender   Sender
	Receiver Receiver
}
