package ledger

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

type memJournal struct {
	mu      sync.Mutex
	blocks  []*domain.Block
	failErr error
}

func (j *memJournal) Append(b *domain.Block) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failErr != nil {
		return j.failErr
	}
	j.blocks = append(j.blocks, b)
	return nil
}

func (j *memJournal) Iterate(from uint64, fn func(*domain.Block) error) error {
	j.mu.Lock()
	blocks := append([]*domain.Block(nil), j.blocks...)
	j.mu.Unlock()
	for _, b := range blocks {
		if b.Index < from {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (j *memJournal) Commit(uint64) error { return nil }

func (j *memJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{Blocks: uint64(len(j.blocks))}
}

func (j *memJournal) Close() error { return nil }

type memSnapshot struct {
	writes  int
	last    []*domain.Block
	failErr error
}

func (s *memSnapshot) WriteChain(blocks []*domain.Block) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.writes++
	s.last = append([]*domain.Block(nil), blocks...)
	return nil
}

type nopObs struct {
	mu       sync.Mutex
	counters map[string]float64
	errors   int
}

func newNopObs() *nopObs { return &nopObs{counters: map[string]float64{}} }

func (o *nopObs) LogInfo(string, ...ports.Field) {}
func (o *nopObs) LogWarn(string, ...ports.Field) {}
func (o *nopObs) LogError(string, error, ...ports.Field) {
	o.mu.Lock()
	o.errors++
	o.mu.Unlock()
}
func (o *nopObs) LogCritical(string, error, ...ports.Field) {}
func (o *nopObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	o.counters[name] += v
	o.mu.Unlock()
}
func (o *nopObs) Observe(string, float64) {}
func (o *nopObs) SetGauge(string, float64) {}
func (o *nopObs) RecordVerdict(domain.Verdict) {}

var errDiskFull = errors.New("disk full")

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := NewSigner(key)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func sampleRecord(port uint16) domain.Record {
	return domain.Record{
		Protocol:  domain.LabelCoAP,
		SrcIP:     "10.0.0.1",
		DstIP:     "10.0.0.2",
		DstPort:   port,
		Timestamp: "2024-05-01 10:00:00.000000",
		LatencyUS: 42,
		InPort:    1,
	}
}
