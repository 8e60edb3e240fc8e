//go:build linux

// Package linktap adapts a Linux TAP device into the datalink.Sender and
// datalink.Receiver contracts netstack consumes. It talks to the host
// kernel directly (as does routing.LoadFromNetlink), translated from the
// teacher's raw syscall+unsafe ifreq poking into golang.org/x/sys/unix's
// typed Ifreq helpers.
package linktap

import (
	"fmt"
	"os/exec"

	"github.com/soypat/lnetstack/datalink"
	"golang.org/x/sys/unix"
)

const tunPath = "/dev/net/tun"

// Tap is a Linux TAP device, opened in IFF_NO_PI mode (no packet-info
// prefix: every Read/Write deals in bare Ethernet frames, matching what
// datalink.Sender/Receiver expect).
type Tap struct {
	fd   int
	name string
}

// New opens (or attaches to) the named TAP device, bringing it up and
// assigning the given CIDR address via the `ip` command line tool, the
// same way the teacher's internal/tap.go does it. addr may be empty to
// skip address assignment (e.g. when the address is managed elsewhere).
func New(name string, addr string) (*Tap, error) {
	fd, err := unix.Open(tunPath, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("linktap: open %s: %w", tunPath, err)
	}
	req, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linktap: interface name %q: %w", name, err)
	}
	req.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, req); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linktap: TUNSETIFF: %w", err)
	}
	if err := exec.Command("ip", "link", "set", "dev", name, "up").Run(); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linktap: bringing up %s: %w", name, err)
	}
	if addr != "" {
		if err := exec.Command("ip", "addr", "add", addr, "dev", name).Run(); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("linktap: assigning %s to %s: %w", addr, name, err)
		}
	}
	return &Tap{fd: fd, name: name}, nil
}

// Close releases the TAP file descriptor.
func (t *Tap) Close() error {
	return unix.Close(t.fd)
}

// Receive implements datalink.Receiver: one Read call yields one frame,
// since TAP devices are packet-oriented.
func (t *Tap) Receive(buf []byte) (int, error) {
	return unix.Read(t.fd, buf)
}

// Send implements datalink.Sender: it builds n frames of frameSize bytes
// via fill and writes each with its own Write call.
func (t *Tap) Send(n, frameSize int, fill datalink.FrameFiller) error {
	buf := make([]byte, frameSize)
	for i := 0; i < n; i++ {
		if err := fill(buf); err != nil {
			return err
		}
		if _, err := unix.Write(t.fd, buf); err != nil {
			return fmt.Errorf("linktap: write: %w", err)
		}
	}
	return nil
}

// HardwareAddress6 queries the kernel for the device's MAC address over a
// short-lived AF_INET socket, since TAP file descriptors themselves don't
// answer SIOCGIFHWADDR.
func (t *Tap) HardwareAddress6() (hw [6]byte, err error) {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return hw, fmt.Errorf("linktap: socket: %w", err)
	}
	defer unix.Close(sock)
	req, err := unix.NewIfreq(t.name)
	if err != nil {
		return hw, err
	}
	if err := unix.IoctlIfreq(sock, unix.SIOCGIFHWADDR, req); err != nil {
		return hw, fmt.Errorf("linktap: SIOCGIFHWADDR: %w", err)
	}
	sa, err := req.HwAddr()
	if err != nil {
		return hw, fmt.Errorf("linktap: decoding hwaddr: %w", err)
	}
	for i := range hw {
		hw[i] = byte(sa.Data[i])
	}
	return hw, nil
}

// MTU queries the kernel for the device's current MTU over a short-lived
// AF_INET socket.
func (t *Tap) MTU() (int, error) {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, fmt.Errorf("linktap: socket: %w", err)
	}
	defer unix.Close(sock)
	req, err := unix.NewIfreq(t.name)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(sock, unix.SIOCGIFMTU, req); err != nil {
		return 0, fmt.Errorf("linktap: SIOCGIFMTU: %w", err)
	}
	raw, err := req.Uint32()
	if err != nil {
		return 0, err
	}
	return int(raw), nil
}
