package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// BlockSink mirrors ledger blocks into a downstream system.
type BlockSink interface {
	WriteBatch(blocks []*domain.Block) error
	Name() string
}

// TrafficRecorder keeps the live-traffic log of the monitor variant.
type TrafficRecorder interface {
	Record(entry domain.TrafficEntry) error
}
