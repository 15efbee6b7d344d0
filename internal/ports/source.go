package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// EventSource delivers switch notifications (frame arrivals, handshakes)
// into the pipeline until stopped.
type EventSource interface {
	Start(out chan<- *domain.Event) error
	Stop() error
}
