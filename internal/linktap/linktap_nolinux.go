//go:build !linux

package linktap

import (
	"errors"

	"github.com/soypat/lnetstack/datalink"
)

// Tap is a stub on non-Linux platforms: TAP devices are a Linux-specific
// mechanism, and this module has no other datalink backend yet.
type Tap struct{}

func New(name string, addr string) (*Tap, error) {
	return nil, errors.ErrUnsupported
}

func (t *Tap) Close() error { return errors.ErrUnsupported }

func (t *Tap) Receive(buf []byte) (int, error) { return -1, errors.ErrUnsupported }

func (t *Tap) Send(n, frameSize int, fill datalink.FrameFiller) error {
	return errors.ErrUnsupported
}

func (t *Tap) HardwareAddress6() (hw [6]byte, err error) { return hw, errors.ErrUnsupported }

func (t *Tap) MTU() (int, error) { return -1, errors.ErrUnsupported }
