package anomaly

import (
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

// ReplayGuard pins every application flow to the ingress port it was first
// observed on.
type ReplayGuard struct {
	mu      sync.Mutex
	trusted map[domain.FlowKey]uint32
}

func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{trusted: make(map[domain.FlowKey]uint32)}
}

// Check returns Violation when key reappears on a different port.
func (g *ReplayGuard) Check(key domain.FlowKey, inPort uint32) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	bound, ok := g.trusted[key]
	if !ok {
		g.trusted[key] = inPort
		return Allow
	}
	if bound != inPort {
		return Violation
	}
	return Allow
}

// Len returns the number of trusted flows.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.trusted)
}
