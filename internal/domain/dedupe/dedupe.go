// Package dedupe tracks which interaction events have already left the sink,
// so a replayed or re-enqueued event is published at most once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const defaultMaxSize = 50_000

// Deduper records published event IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded, recording it if not.
	SeenAndRecord(ctx context.Context, id uuid.UUID) bool

	// Unrecord forgets id so a failed publication can be retried.
	Unrecord(ctx context.Context, id uuid.UUID)

	Size() int64
}

// inMemoryDeduper keeps a bounded window of IDs. Once full, the oldest
// recorded ID is evicted first. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[uuid.UUID]int // id -> slot in ring; -1 when unbounded
	ring    []uuid.UUID
	used    []bool
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[uuid.UUID]int)
	if d.maxSize > 0 {
		d.ring = make([]uuid.UUID, d.maxSize)
		d.used = make([]bool, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[id] = -1
		d.size.Add(1)
		return false
	}

	// The write cursor always points at the oldest slot.
	slot := d.next
	if d.used[slot] {
		delete(d.seen, d.ring[slot])
		d.size.Add(-1)
	}
	d.ring[slot] = id
	d.used[slot] = true
	d.seen[id] = slot
	d.next = (slot + 1) % d.maxSize
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.used[slot] = false
		d.ring[slot] = uuid.Nil
	}
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
