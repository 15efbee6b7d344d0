package testutil

import (
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Obs is an in-memory ports.Observability that records counters, verdicts
// and logged errors.
type Obs struct {
	mu       sync.Mutex
	Counters map[string]float64
	Gauges   map[string]float64
	Verdicts map[domain.Verdict]int
	Errors   []string
	Critical []string
}

func NewObs() *Obs {
	return &Obs{
		Counters: map[string]float64{},
		Gauges:   map[string]float64{},
		Verdicts: map[domain.Verdict]int{},
	}
}

func (o *Obs) LogInfo(string, ...ports.Field) {}
func (o *Obs) LogWarn(string, ...ports.Field) {}

func (o *Obs) LogError(msg string, _ error, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Errors = append(o.Errors, msg)
}

func (o *Obs) LogCritical(msg string, _ error, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Critical = append(o.Critical, msg)
}

func (o *Obs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Counters[name] += v
}

func (o *Obs) Observe(string, float64) {}

func (o *Obs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Gauges[name] = v
}

func (o *Obs) RecordVerdict(v domain.Verdict) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Verdicts[v]++
}

func (o *Obs) Counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Counters[name]
}

func (o *Obs) VerdictCount(v domain.Verdict) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Verdicts[v]
}

var _ ports.Observability = (*Obs)(nil)
