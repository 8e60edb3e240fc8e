package netstack

import (
	"log/slog"

	"github.com/soypat/lnetstack/arp"
)

// ctrlMsg is one unit of work serialized through an InterfaceWorker's
// queue. ARP updates arrive off the receive goroutine as arp.Rx callbacks;
// funneling them through a single worker goroutine keeps table mutation
// and ARP reply transmission off the hot receive path and gives
// spec.md's "ARP replies happen on the worker, not inline" invariant a
// concrete home.
type ctrlMsg interface {
	apply(w *InterfaceWorker)
}

type msgUpdateArp struct {
	senderIP  [4]byte
	senderMAC [6]byte
}

func (m msgUpdateArp) apply(w *InterfaceWorker) {
	// The barrier is bumped before Insert wakes any waiter, so a send chain
	// built by a woken resolver snapshots the post-update version.
	if old, ok := w.iface.arpTable.Lookup(m.senderIP); !ok || old != m.senderMAC {
		w.iface.barrier.inc()
	}
	w.iface.arpTable.Insert(m.senderIP, m.senderMAC)
}

type msgArpRequest struct {
	senderIP  [4]byte
	senderMAC [6]byte
	targetIP  [4]byte
}

func (m msgArpRequest) apply(w *InterfaceWorker) {
	msgUpdateArp{senderIP: m.senderIP, senderMAC: m.senderMAC}.apply(w)
	err := w.iface.replyIfLocal(m.senderMAC, m.senderIP, m.targetIP)
	if err != nil {
		w.log.Error("arp: reply failed", slog.String("err", err.Error()))
	}
}

type msgShutdown struct{}

func (msgShutdown) apply(*InterfaceWorker) {}

// InterfaceWorker serializes ARP table mutation and reply transmission for
// one StackInterface through a single goroutine, implementing arp.Notifier
// for the interface's arp.Rx. Its queue holds 64 messages, so the receive
// goroutine does not block while the worker is briefly behind; once the
// queue is full, enqueueing blocks until the worker drains it or exits. A
// queue that does fill indicates the worker is stuck, which is a bug
// elsewhere, not a condition this type tries to paper over.
type InterfaceWorker struct {
	iface *StackInterface
	log   *slog.Logger
	queue chan ctrlMsg
	done  chan struct{}
}

func newInterfaceWorker(iface *StackInterface, log *slog.Logger) *InterfaceWorker {
	w := &InterfaceWorker{
		iface: iface,
		log:   log,
		queue: make(chan ctrlMsg, 64),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *InterfaceWorker) run() {
	defer close(w.done)
	for msg := range w.queue {
		if _, ok := msg.(msgShutdown); ok {
			return
		}
		msg.apply(w)
	}
}

// send enqueues msg, dropping it silently if the worker has already shut
// down: a racing ARP update after Close is a no-op, not an error.
func (w *InterfaceWorker) send(msg ctrlMsg) {
	select {
	case w.queue <- msg:
	case <-w.done:
	}
}

// UpdateArpTable implements arp.Notifier.
func (w *InterfaceWorker) UpdateArpTable(senderIP [4]byte, senderMAC [6]byte) {
	w.send(msgUpdateArp{senderIP: senderIP, senderMAC: senderMAC})
}

// ArpRequest implements arp.Notifier.
func (w *InterfaceWorker) ArpRequest(senderIP [4]byte, senderMAC [6]byte, targetIP [4]byte) {
	w.send(msgArpRequest{senderIP: senderIP, senderMAC: senderMAC, targetIP: targetIP})
}

// Shutdown enqueues a shutdown message and blocks until the worker
// goroutine has exited. Safe to call more than once.
func (w *InterfaceWorker) Shutdown() {
	select {
	case w.queue <- msgShutdown{}:
	case <-w.done:
		return
	}
	<-w.done
}

var _ arp.Notifier = (*InterfaceWorker)(nil)
