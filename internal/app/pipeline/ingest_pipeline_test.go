package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/AegisSDN/internal/adapters/queue"
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
	"github.com/ghalamif/AegisSDN/internal/testutil"
)

type memJournal struct {
	mu       sync.Mutex
	blocks   []*domain.Block
	mirrored uint64
	commits  []uint64
}

func newMemJournal(n int) *memJournal {
	j := &memJournal{}
	for i := 0; i < n; i++ {
		j.blocks = append(j.blocks, &domain.Block{Index: uint64(i)})
	}
	return j
}

func (j *memJournal) Append(b *domain.Block) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.blocks = append(j.blocks, b)
	return nil
}

func (j *memJournal) Iterate(from uint64, fn func(*domain.Block) error) error {
	j.mu.Lock()
	blocks := append([]*domain.Block(nil), j.blocks...)
	j.mu.Unlock()
	for _, b := range blocks {
		if b.Index < from {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (j *memJournal) Commit(next uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if next > j.mirrored {
		j.mirrored = next
	}
	j.commits = append(j.commits, next)
	return nil
}

func (j *memJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{Blocks: uint64(len(j.blocks)), Mirrored: j.mirrored}
}

func (j *memJournal) Close() error { return nil }

func (j *memJournal) Mirrored() uint64 {
	return j.Stats().Mirrored
}

type recordingSink struct {
	mu      sync.Mutex
	got     []uint64
	failFor int
	failErr error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) WriteBatch(blocks []*domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor > 0 {
		s.failFor--
		return s.failErr
	}
	for _, b := range blocks {
		s.got = append(s.got, b.Index)
	}
	return nil
}

func (s *recordingSink) Indices() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.got...)
}

var testPolicy = ports.Policy{MaxBatchSize: 4, IdleSleep: time.Millisecond, OnQueueFull: "block"}

func runIngest(t *testing.T, j ports.BlockJournal, q ports.BlockQueue, sinks []ports.BlockSink, obs ports.Observability) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunIngestPipeline(ctx, j, q, sinks, testPolicy, obs)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestIngestAdvancesMirrorMark(t *testing.T) {
	j := newMemJournal(10)
	q := queue.NewMemQueue(16)
	sink := &recordingSink{}
	obs := testutil.NewObs()

	n, err := ReplayUnmirrored(j, q, testPolicy, obs)
	if err != nil || n != 10 {
		t.Fatalf("replay queued %d blocks (err %v), want 10", n, err)
	}

	runIngest(t, j, q, []ports.BlockSink{sink}, obs)

	waitFor(t, "mirror mark 10", func() bool { return j.Mirrored() == 10 })
	if got, want := sink.Indices(), []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}; !reflect.DeepEqual(got, want) {
		t.Fatalf("sink got %v, want %v", got, want)
	}
	if got := obs.Counter(ports.MetricMirrorBlocks); got != 10 {
		t.Fatalf("expected 10 mirrored blocks counted, got %v", got)
	}
}

func TestIngestMarkStopsAtGap(t *testing.T) {
	j := newMemJournal(0)
	q := queue.NewMemQueue(16)
	sink := &recordingSink{}
	obs := testutil.NewObs()

	// Block 2 never reaches the queue.
	for _, i := range []uint64{0, 1, 3, 4} {
		if !q.Enqueue(&domain.Block{Index: i}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	runIngest(t, j, q, []ports.BlockSink{sink}, obs)

	waitFor(t, "all blocks written", func() bool { return len(sink.Indices()) == 4 })
	waitFor(t, "mirror mark 2", func() bool { return j.Mirrored() == 2 })
	time.Sleep(10 * time.Millisecond)
	if got := j.Mirrored(); got != 2 {
		t.Fatalf("mark moved past the gap to %d", got)
	}
}

func TestIngestRetriesRetryableSinkErrors(t *testing.T) {
	j := newMemJournal(0)
	q := queue.NewMemQueue(16)
	sink := &recordingSink{failFor: 2, failErr: errors.New(errors.KindUnavailable, "db down")}
	obs := testutil.NewObs()

	if !q.Enqueue(&domain.Block{Index: 0}) {
		t.Fatalf("enqueue failed")
	}
	runIngest(t, j, q, []ports.BlockSink{sink}, obs)

	waitFor(t, "mirror mark 1", func() bool { return j.Mirrored() == 1 })
	if got := sink.Indices(); !reflect.DeepEqual(got, []uint64{0}) {
		t.Fatalf("sink got %v, want [0]", got)
	}
	if got := obs.Counter(ports.MetricMirrorFailures); got != 0 {
		t.Fatalf("retried errors must not count as failures, got %v", got)
	}
}

func TestIngestFailureLeavesBlocksForReplay(t *testing.T) {
	j := newMemJournal(3)
	q := queue.NewMemQueue(16)
	sink := &recordingSink{failFor: 1, failErr: fmt.Errorf("schema mismatch")}
	obs := testutil.NewObs()

	if _, err := ReplayUnmirrored(j, q, testPolicy, obs); err != nil {
		t.Fatalf("replay: %v", err)
	}
	runIngest(t, j, q, []ports.BlockSink{sink}, obs)

	waitFor(t, "mirror failure", func() bool { return obs.Counter(ports.MetricMirrorFailures) == 1 })
	if j.Mirrored() != 0 || len(sink.Indices()) != 0 {
		t.Fatalf("failed batch must not advance the mark: mark=%d sink=%v", j.Mirrored(), sink.Indices())
	}

	// A restart replays everything still unmirrored.
	n, err := ReplayUnmirrored(j, q, testPolicy, obs)
	if err != nil || n != 3 {
		t.Fatalf("second replay queued %d blocks (err %v), want 3", n, err)
	}
	waitFor(t, "mirror mark 3", func() bool { return j.Mirrored() == 3 })
}

func TestReplayUnmirroredSkipsMirroredBlocks(t *testing.T) {
	j := newMemJournal(6)
	if err := j.Commit(4); err != nil {
		t.Fatalf("commit: %v", err)
	}
	q := queue.NewMemQueue(16)

	n, err := ReplayUnmirrored(j, q, testPolicy, testutil.NewObs())
	if err != nil || n != 2 {
		t.Fatalf("replay queued %d blocks (err %v), want 2", n, err)
	}
	batch := q.DequeueBatch(0)
	if len(batch) != 2 || batch[0].Index != 4 {
		t.Fatalf("unexpected replayed batch: %+v", batch)
	}
}

func TestReplayUnmirroredDropPolicyStopsWhenFull(t *testing.T) {
	j := newMemJournal(5)
	q := queue.NewMemQueue(2)
	pol := testPolicy
	pol.OnQueueFull = "drop"

	n, err := ReplayUnmirrored(j, q, pol, testutil.NewObs())
	if err == nil || !errors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 queued before the queue filled, got %d", n)
	}
}

func TestMirrorHookCountsDrops(t *testing.T) {
	q := queue.NewMemQueue(1)
	obs := testutil.NewObs()
	pol := testPolicy
	pol.OnQueueFull = "drop"

	hook := MirrorHook(q, pol, obs)
	hook(&domain.Block{Index: 1})
	hook(&domain.Block{Index: 2})

	if q.Len() != 1 {
		t.Fatalf("expected one queued block, got %d", q.Len())
	}
	if got := obs.Counter(ports.MetricQueueDropped); got != 1 {
		t.Fatalf("expected one dropped block, got %v", got)
	}
}
