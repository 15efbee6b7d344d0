package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

type Options struct {
	// SnapshotEvery rewrites the snapshot after this many appends; <= 0 means every append.
	SnapshotEvery int
	// OnAppend is called under the ledger lock with every published block,
	// so observers see blocks in chain order.
	OnAppend func(b *domain.Block)
	Now      func() time.Time
}

// Ledger is the single writer of the audit chain. Every append runs
// tail lookup, signing, journaling and publication as one critical section.
type Ledger struct {
	mu       sync.Mutex
	blocks   []*domain.Block
	journal  ports.BlockJournal
	signer   *Signer
	snapshot ports.ChainSnapshot
	obs      ports.Observability

	snapshotEvery int
	pending       int
	onAppend      func(b *domain.Block)
	now           func() time.Time
}

// Open recovers the chain from journal, verifying it against the signer's
// public key. An empty journal is seeded with a genesis block. snapshot may
// be nil.
func Open(journal ports.BlockJournal, signer *Signer, snapshot ports.ChainSnapshot, obs ports.Observability, opts Options) (*Ledger, error) {
	if journal == nil || signer == nil || obs == nil {
		return nil, errors.New(errors.KindValidation, "ledger: journal, signer and observability are required")
	}
	l := &Ledger{
		journal:       journal,
		signer:        signer,
		snapshot:      snapshot,
		obs:           obs,
		snapshotEvery: opts.SnapshotEvery,
		onAppend:      opts.OnAppend,
		now:           opts.Now,
	}
	if l.snapshotEvery <= 0 {
		l.snapshotEvery = 1
	}
	if l.now == nil {
		l.now = time.Now
	}

	if err := journal.Iterate(0, func(b *domain.Block) error {
		l.blocks = append(l.blocks, b)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "ledger: replay journal")
	}

	if len(l.blocks) == 0 {
		genesis := NewGenesis(l.now().Format(domain.TimestampLayout))
		if err := journal.Append(genesis); err != nil {
			return nil, errors.Wrap(err, errors.KindUnavailable, "ledger: persist genesis block")
		}
		l.blocks = append(l.blocks, genesis)
		obs.LogInfo("genesis block created", ports.Field{Key: "hash", Value: genesis.Hash})
	} else {
		if err := VerifyChain(l.blocks, signer.Public()); err != nil {
			return nil, errors.Wrap(err, errors.KindConflict, "ledger: journal failed verification")
		}
		obs.LogInfo("ledger recovered",
			ports.Field{Key: "blocks", Value: len(l.blocks)},
			ports.Field{Key: "tail_hash", Value: l.blocks[len(l.blocks)-1].Hash},
		)
	}

	l.pending = 1
	l.mu.Lock()
	l.flushSnapshotLocked()
	l.mu.Unlock()
	return l, nil
}

// Append signs rec, chains it onto the tail and returns the serialized size
// of the tentative signed block, which is also embedded in the stored record
// as packet_size_bytes. Journal failures are retryable and leave the chain
// unchanged.
func (l *Ledger) Append(rec domain.Record) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := l.blocks[len(l.blocks)-1]

	canonical, err := strippedPayload(rec)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "ledger: encode record")
	}
	sig, err := l.signer.Sign(canonical)
	if err != nil {
		return 0, err
	}

	index := tail.Index + 1
	timestamp := l.now().Format(domain.TimestampLayout)
	size, err := tentativeSize(index, timestamp, canonical, tail.Hash, sig)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "ledger: encode tentative block")
	}

	rec.PacketSizeBytes = size
	final, err := json.Marshal(rec)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "ledger: encode record")
	}
	block := &domain.Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         string(final),
		PreviousHash: tail.Hash,
		Signature:    sig,
	}
	block.Hash = hashOf(block)

	if err := l.journal.Append(block); err != nil {
		l.obs.IncCounter(ports.MetricLedgerPersistFailed, 1)
		werr := errors.Wrap(err, errors.KindUnavailable, "ledger: journal append")
		return 0, errors.Attr(werr, "index", block.Index)
	}
	l.blocks = append(l.blocks, block)

	l.obs.IncCounter(ports.MetricLedgerBlocks, 1)
	l.obs.Observe(ports.MetricLedgerBlockSize, float64(size))
	l.obs.SetGauge(ports.MetricJournalSize, float64(l.journal.Stats().SizeBytes))

	l.pending++
	if l.pending >= l.snapshotEvery {
		l.flushSnapshotLocked()
	}
	if l.onAppend != nil {
		l.onAppend(block)
	}
	return size, nil
}

// Flush writes the snapshot if appends happened since the last successful one.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == 0 || l.snapshot == nil {
		return nil
	}
	if err := l.snapshot.WriteChain(l.blocks); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "ledger: write snapshot")
	}
	l.pending = 0
	return nil
}

// flushSnapshotLocked keeps pending set on failure so the next append retries.
func (l *Ledger) flushSnapshotLocked() {
	if l.snapshot == nil {
		l.pending = 0
		return
	}
	if err := l.snapshot.WriteChain(l.blocks); err != nil {
		l.obs.LogError("ledger snapshot failed", err, ports.Field{Key: "blocks", Value: len(l.blocks)})
		return
	}
	l.pending = 0
}

// Blocks returns a copy of the chain. Blocks themselves are immutable.
func (l *Ledger) Blocks() []*domain.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

func (l *Ledger) Tail() *domain.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocks[len(l.blocks)-1]
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// Verify checks the in-memory chain against the signer's public key.
func (l *Ledger) Verify() error {
	return VerifyChain(l.Blocks(), l.signer.Public())
}
