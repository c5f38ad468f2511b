package otel

import (
	"strings"
	"sync"
)

// DefaultRingSize is used when NewRingBuffer gets a non-positive size.
const DefaultRingSize = 1024

// RingBuffer holds the most recent events. It is safe for concurrent use.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event // grows to size, then wraps
	next   int     // oldest slot once full
	size   int
	total  uint64
}

// NewRingBuffer creates a buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, 0, size), size: size}
}

// Push appends e, evicting the oldest event when full.
func (r *RingBuffer) Push(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if len(r.events) < r.size {
		r.events = append(r.events, e)
		return
	}
	r.events[r.next] = e
	r.next = (r.next + 1) % r.size
}

// ordered returns the buffered events oldest first. r.mu must be held.
func (r *RingBuffer) ordered() []Event {
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// Snapshot returns every buffered event, oldest first, or nil when empty.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.ordered()
}

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || len(r.events) == 0 {
		return nil
	}
	all := r.ordered()
	if n > len(all) {
		n = len(all)
	}
	return all[len(all)-n:]
}

// Filter returns the buffered events keep accepts, oldest first.
func (r *RingBuffer) Filter(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.ordered() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Cap is the buffer capacity.
func (r *RingBuffer) Cap() int { return r.size }

// Total counts every event ever pushed, evicted ones included.
func (r *RingBuffer) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Stats counts buffered events per kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[EventKind]int)
	for _, e := range r.events {
		counts[e.Kind]++
	}
	return counts
}

// Subsystem sums Stats over kinds starting with prefix, e.g. "compare".
func (r *RingBuffer) Subsystem(prefix string) int {
	n := 0
	for kind, c := range r.Stats() {
		if strings.HasPrefix(string(kind), prefix+".") {
			n += c
		}
	}
	return n
}
