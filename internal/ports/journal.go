package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// BlockJournal is the append-only durable log behind the audit ledger.
type BlockJournal interface {
	Append(b *domain.Block) error
	Iterate(from uint64, fn func(b *domain.Block) error) error
	// Commit records that every block with index < next reached the mirrors.
	Commit(next uint64) error
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	Blocks    uint64
	Mirrored  uint64
	SizeBytes int64
}
