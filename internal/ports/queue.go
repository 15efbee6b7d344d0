package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// BlockQueue buffers appended blocks on their way to the mirror sinks.
type BlockQueue interface {
	Enqueue(b *domain.Block) bool
	DequeueBatch(max int) []*domain.Block
	Len() int
}
