package queue

import (
	"testing"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

func blocks(from, to uint64) []*domain.Block {
	var out []*domain.Block
	for i := from; i <= to; i++ {
		out = append(out, &domain.Block{Index: i})
	}
	return out
}

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)
	for _, b := range blocks(1, 2) {
		if !q.Enqueue(b) {
			t.Fatalf("enqueue %d failed", b.Index)
		}
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].Index != 1 {
		t.Fatalf("unexpected first batch: %+v", batch)
	}
	rest := q.DequeueBatch(10)
	if len(rest) != 1 || rest[0].Index != 2 {
		t.Fatalf("unexpected second batch: %+v", rest)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(5) != nil {
		t.Fatalf("empty queue should return nil batch")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)
	for _, b := range blocks(1, 2) {
		if !q.Enqueue(b) {
			t.Fatalf("expected enqueue within capacity")
		}
	}
	if q.Enqueue(&domain.Block{Index: 3}) {
		t.Fatalf("enqueue should fail when the ring is full")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(&domain.Block{Index: 3}) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
	if q.Len() != 2 || q.Peak() != 2 {
		t.Fatalf("len=%d peak=%d, want 2/2", q.Len(), q.Peak())
	}
}

func TestMemQueueWrapsAroundInOrder(t *testing.T) {
	q := NewMemQueue(3)
	next := uint64(0)
	var got []uint64
	for round := 0; round < 5; round++ {
		for q.Enqueue(&domain.Block{Index: next}) {
			next++
		}
		for _, b := range q.DequeueBatch(2) {
			got = append(got, b.Index)
		}
	}
	for _, b := range q.DequeueBatch(0) {
		got = append(got, b.Index)
	}

	if uint64(len(got)) != next {
		t.Fatalf("dequeued %d blocks, enqueued %d", len(got), next)
	}
	for i, idx := range got {
		if idx != uint64(i) {
			t.Fatalf("position %d holds block %d", i, idx)
		}
	}
}
