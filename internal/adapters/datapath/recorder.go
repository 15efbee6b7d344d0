package datapath

import (
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Recorder is an in-memory datapath. It keeps every command it receives so
// offline replays and tests can inspect what the controller decided.
type Recorder struct {
	mu       sync.Mutex
	obs      ports.Observability
	rules    []domain.FlowRule
	forwards []domain.PacketOut

	// FailWith, when set, is returned by every command after it is recorded.
	FailWith error
}

// NewRecorder returns a recorder that logs commands through obs; obs may be nil.
func NewRecorder(obs ports.Observability) *Recorder {
	return &Recorder{obs: obs}
}

func (r *Recorder) InstallRule(rule domain.FlowRule) error {
	r.mu.Lock()
	r.rules = append(r.rules, rule)
	err := r.FailWith
	r.mu.Unlock()

	if r.obs != nil {
		r.obs.LogInfo("flow rule installed",
			ports.Field{Key: "switch_id", Value: rule.SwitchID},
			ports.Field{Key: "priority", Value: rule.Priority},
			ports.Field{Key: "match", Value: rule.Match},
			ports.Field{Key: "drop", Value: len(rule.Actions) == 0},
			ports.Field{Key: "idle_timeout", Value: rule.IdleTimeout},
		)
	}
	return err
}

func (r *Recorder) Forward(out domain.PacketOut) error {
	r.mu.Lock()
	r.forwards = append(r.forwards, out)
	err := r.FailWith
	r.mu.Unlock()
	return err
}

func (r *Recorder) Rules() []domain.FlowRule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FlowRule(nil), r.rules...)
}

func (r *Recorder) Forwards() []domain.PacketOut {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PacketOut(nil), r.forwards...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = nil
	r.forwards = nil
}

var _ ports.Datapath = (*Recorder)(nil)
