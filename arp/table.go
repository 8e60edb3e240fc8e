package arp

import "sync"

// Table is an IPv4-to-hardware-address cache with pending-waiter queues. A
// lookup for an address not yet known returns a one-shot channel that
// resolves the moment a matching Insert arrives; this is how ipv4_tx blocks
// waiting for ARP without polling. The zero value is ready to use.
type Table struct {
	mu      sync.Mutex
	entries map[[4]byte][6]byte
	waiters map[[4]byte][]chan [6]byte
}

// Insert records (or updates) the hardware address bound to ip, waking
// every waiter registered for ip with the new address. It reports whether
// the call changed the binding (a brand new entry, or a different MAC than
// was previously recorded) — the condition under which a TxBarrier is
// bumped, since any previously resolved send chain for this IP is now
// stale.
func (t *Table) Insert(ip [4]byte, mac [6]byte) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[[4]byte][6]byte)
	}
	old, existed := t.entries[ip]
	changed = !existed || old != mac
	t.entries[ip] = mac
	for _, w := range t.waiters[ip] {
		w <- mac
		close(w)
	}
	delete(t.waiters, ip)
	return changed
}

// Lookup returns the cached hardware address for ip and true if known.
func (t *Table) Lookup(ip [4]byte) (mac [6]byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mac, ok = t.entries[ip]
	return mac, ok
}

// Get returns the hardware address bound to ip if already known. Otherwise
// it registers a fresh one-shot waiter for ip and returns it; the caller is
// expected to first trigger an ARP request for ip and then receive from the
// waiter (or give up, abandoning it — Insert tolerates an unread waiter).
func (t *Table) Get(ip [4]byte) (mac [6]byte, waiter <-chan [6]byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mac, ok := t.entries[ip]; ok {
		return mac, nil, true
	}
	if t.waiters == nil {
		t.waiters = make(map[[4]byte][]chan [6]byte)
	}
	w := make(chan [6]byte, 1)
	t.waiters[ip] = append(t.waiters[ip], w)
	return [6]byte{}, w, false
}

// AbandonWaiters closes every outstanding waiter channel without a value,
// which a blocked receiver observes as the channel closing (zero value,
// ok=false). Used on interface teardown so no goroutine blocks forever on
// an ARP reply that will never come.
func (t *Table) AbandonWaiters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ws := range t.waiters {
		for _, w := range ws {
			close(w)
		}
	}
	t.waiters = nil
}
