package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

const mirrorAttempts = 3

// RunIngestPipeline drains appended blocks from q into every sink until ctx
// is cancelled. The journal's mirror mark only advances over an unbroken run
// of delivered blocks, so anything lost to a failure or a queue drop is
// replayed by ReplayUnmirrored on the next start.
func RunIngestPipeline(ctx context.Context, journal ports.BlockJournal, q ports.BlockQueue, sinks []ports.BlockSink, pol ports.Policy, obs ports.Observability) {
	next := journal.Stats().Mirrored
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		obs.SetGauge(ports.MetricQueueLength, float64(q.Len()))
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		if !mirrorBatch(ctx, batch, sinks, idle, obs) {
			continue
		}
		obs.IncCounter(ports.MetricMirrorBlocks, float64(len(batch)))

		advanced := next
		for _, b := range batch {
			if b.Index == advanced {
				advanced++
			}
		}
		if advanced == next {
			continue
		}
		if err := journal.Commit(advanced); err != nil {
			obs.LogError("journal_commit_failed", err, ports.Field{Key: "next", Value: advanced})
			continue
		}
		next = advanced
	}
}

// mirrorBatch writes batch to every sink, retrying retryable failures.
func mirrorBatch(ctx context.Context, batch []*domain.Block, sinks []ports.BlockSink, backoff time.Duration, obs ports.Observability) bool {
	for _, sink := range sinks {
		var err error
		for attempt := 1; attempt <= mirrorAttempts; attempt++ {
			if err = sink.WriteBatch(batch); err == nil {
				break
			}
			if !errors.IsRetryable(err) || attempt == mirrorAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff << attempt):
			}
		}
		if err != nil {
			obs.IncCounter(ports.MetricMirrorFailures, 1)
			obs.LogError("sink_write_failed", err,
				ports.Field{Key: "sink", Value: sink.Name()},
				ports.Field{Key: "first_index", Value: batch[0].Index},
				ports.Field{Key: "blocks", Value: len(batch)},
			)
			return false
		}
	}
	return true
}

// ReplayUnmirrored re-queues journal blocks that never reached the sinks.
func ReplayUnmirrored(journal ports.BlockJournal, q ports.BlockQueue, pol ports.Policy, obs ports.Observability) (int, error) {
	from := journal.Stats().Mirrored
	replayed := 0
	err := journal.Iterate(from, func(b *domain.Block) error {
		if !enqueueBlock(q, b, pol, obs) {
			return errors.Errorf(errors.KindUnavailable, "mirror queue full while replaying block %d", b.Index)
		}
		replayed++
		return nil
	})
	return replayed, err
}

// MirrorHook returns a ledger OnAppend callback that queues blocks for the
// sinks under the queue-full policy.
func MirrorHook(q ports.BlockQueue, pol ports.Policy, obs ports.Observability) func(*domain.Block) {
	return func(b *domain.Block) {
		if !enqueueBlock(q, b, pol, obs) {
			obs.IncCounter(ports.MetricQueueDropped, 1)
		}
	}
}

func enqueueBlock(q ports.BlockQueue, b *domain.Block, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}
	for {
		if q.Enqueue(b) {
			return true
		}
		if pol.OnQueueFull != "block" {
			obs.LogWarn("mirror queue full, block deferred to replay", ports.Field{Key: "index", Value: b.Index})
			return false
		}
		time.Sleep(sleep)
	}
}
