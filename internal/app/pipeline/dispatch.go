package pipeline

import (
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Handler processes one event of the kind it is registered for.
type Handler func(ev *domain.Event)

// Dispatcher routes events to handlers by kind. Registration happens before
// the pipeline starts; Dispatch is safe for concurrent use afterwards.
type Dispatcher struct {
	handlers map[domain.EventKind]Handler
	obs      ports.Observability
}

func NewDispatcher(obs ports.Observability) *Dispatcher {
	return &Dispatcher{handlers: make(map[domain.EventKind]Handler), obs: obs}
}

func (d *Dispatcher) Register(kind domain.EventKind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch reports whether a handler accepted the event.
func (d *Dispatcher) Dispatch(ev *domain.Event) bool {
	if ev == nil {
		return false
	}
	h, ok := d.handlers[ev.Kind]
	if !ok {
		d.obs.LogWarn("no handler for event",
			ports.Field{Key: "event_id", Value: ev.ID},
			ports.Field{Key: "kind", Value: ev.Kind.String()},
		)
		return false
	}
	h(ev)
	return true
}

// NewControllerDispatcher wires the controller's handlers into a dispatch table.
func NewControllerDispatcher(c *Controller, obs ports.Observability) *Dispatcher {
	d := NewDispatcher(obs)
	d.Register(domain.EventSwitchConnected, c.HandleSwitchConnected)
	d.Register(domain.EventFrameArrived, func(ev *domain.Event) { c.HandleFrame(ev) })
	return d
}
