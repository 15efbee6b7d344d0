package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// ChainSnapshot publishes a full copy of the ledger for read-only consumers.
type ChainSnapshot interface {
	WriteChain(blocks []*domain.Block) error
}
