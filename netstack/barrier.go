package netstack

import (
	"sync"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/stackerr"
)

// TxBarrier wraps a raw datalink sender with a 64-bit version counter.
// Every send takes the barrier's mutex for the duration of the underlying
// datalink call. The version is bumped on ARP-table mutation, MTU change,
// and interface teardown, invalidating any TxHandle created before the
// bump — see spec.md 4.8.
type TxBarrier struct {
	mu      sync.Mutex
	sender  datalink.Sender
	version uint64
}

func newTxBarrier(sender datalink.Sender) *TxBarrier {
	return &TxBarrier{sender: sender}
}

// inc bumps the version. Wrapping at 2^64 is acceptable; a collision there
// is not a correctness concern this stack guards against.
func (b *TxBarrier) inc() {
	b.mu.Lock()
	b.version++
	b.mu.Unlock()
}

// Version returns the barrier's current version.
func (b *TxBarrier) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Handle returns a TxHandle snapshotting the barrier's current version.
func (b *TxBarrier) Handle() TxHandle {
	return TxHandle{barrier: b, version: b.Version()}
}

// TxHandle is a version-stamped view of a TxBarrier. It implements
// datalink.Sender, so it can be handed directly to ethernet.NewTx: every
// send through it first compares its snapshot version against the
// barrier's live version and fails closed with stackerr.InvalidTx if the
// barrier moved on since the handle was created.
type TxHandle struct {
	barrier *TxBarrier
	version uint64
}

// Send implements datalink.Sender.
func (h TxHandle) Send(n, frameSize int, fill datalink.FrameFiller) error {
	h.barrier.mu.Lock()
	defer h.barrier.mu.Unlock()
	if h.barrier.version != h.version {
		return stackerr.InvalidTx
	}
	return h.barrier.sender.Send(n, frameSize, fill)
}
