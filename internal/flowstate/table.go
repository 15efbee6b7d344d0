// Package flowstate keeps the per-switch MAC learning table.
package flowstate

import (
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

// Table maps, per switch, each learned source MAC to the port it was last
// seen on. Entries never expire.
type Table struct {
	mu    sync.RWMutex
	ports map[uint64]map[string]uint32
}

func NewTable() *Table {
	return &Table{ports: make(map[uint64]map[string]uint32)}
}

// Learn records that mac was seen on inPort, replacing any previous port.
func (t *Table) Learn(switchID uint64, mac string, inPort uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sw, ok := t.ports[switchID]
	if !ok {
		sw = make(map[string]uint32)
		t.ports[switchID] = sw
	}
	sw[mac] = inPort
}

// Resolve returns the learned port for mac or domain.PortFlood.
func (t *Table) Resolve(switchID uint64, mac string) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if port, ok := t.ports[switchID][mac]; ok {
		return port
	}
	return domain.PortFlood
}

// Len returns the number of learned entries across all switches.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, sw := range t.ports {
		n += len(sw)
	}
	return n
}
