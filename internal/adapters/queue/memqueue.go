package queue

import (
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// MemQueue holds appended blocks in a fixed ring until the mirror drains
// them. Blocks leave in the order they were enqueued.
type MemQueue struct {
	mu    sync.Mutex
	ring  []*domain.Block
	head  int
	count int
	peak  int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{ring: make([]*domain.Block, capacity)}
}

// Enqueue reports false when the ring is full; the caller's policy decides
// whether to wait or drop.
func (q *MemQueue) Enqueue(b *domain.Block) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.ring) {
		return false
	}
	q.ring[(q.head+q.count)%len(q.ring)] = b
	q.count++
	if q.count > q.peak {
		q.peak = q.count
	}
	return true
}

func (q *MemQueue) DequeueBatch(max int) []*domain.Block {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	if max <= 0 || max > q.count {
		max = q.count
	}
	batch := make([]*domain.Block, max)
	for i := range batch {
		slot := (q.head + i) % len(q.ring)
		batch[i] = q.ring[slot]
		q.ring[slot] = nil
	}
	q.head = (q.head + max) % len(q.ring)
	q.count -= max
	return batch
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Peak is the highest number of blocks held at once.
func (q *MemQueue) Peak() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak
}

var _ ports.BlockQueue = (*MemQueue)(nil)
