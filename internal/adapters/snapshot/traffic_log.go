package snapshot

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

const DefaultTrafficEntries = 1000

// TrafficLog keeps the most recent traffic entries and rewrites its file on
// every record.
type TrafficLog struct {
	mu      sync.Mutex
	path    string
	max     int
	entries []domain.TrafficEntry
}

// NewTrafficLog resumes from an existing file when it holds a valid log.
func NewTrafficLog(path string, maxEntries int) *TrafficLog {
	if maxEntries <= 0 {
		maxEntries = DefaultTrafficEntries
	}
	t := &TrafficLog{path: path, max: maxEntries}
	if prev, err := ReadTraffic(path); err == nil {
		if len(prev) > maxEntries {
			prev = prev[len(prev)-maxEntries:]
		}
		t.entries = prev
	}
	return t
}

func (t *TrafficLog) Record(entry domain.TrafficEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.max; over > 0 {
		t.entries = append(t.entries[:0], t.entries[over:]...)
	}
	return writeJSON(t.path, t.entries)
}

func (t *TrafficLog) Entries() []domain.TrafficEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.TrafficEntry(nil), t.entries...)
}

func ReadTraffic(path string) ([]domain.TrafficEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []domain.TrafficEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ ports.TrafficRecorder = (*TrafficLog)(nil)
