package mqtt

import "sync"

// midDispenser is the per-session message-identifier allocator, spec.md §3
// "Message identifier": a 16-bit counter starting at 1, incrementing
// modulo 2^16, never emitting zero, and skipping any value currently live
// in any in-flight table. The usage label exists only for debugging and
// carries no wire meaning - separate logical namespaces are irrelevant on
// the wire (spec.md §4.7).
type midDispenser struct {
	mu     sync.Mutex
	next   uint16
	isLive func(id uint16) bool
}

func newMidDispenser(isLive func(uint16) bool) *midDispenser {
	return &midDispenser{next: 1, isLive: isLive}
}

// alloc allocates the next free message identifier. label is advisory.
func (d *midDispenser) alloc(label string) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		id := d.next
		d.next++
		if d.next == 0 {
			d.next = 1
		}
		if d.isLive == nil || !d.isLive(id) {
			return id
		}
	}
}
