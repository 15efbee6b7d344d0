package aegissdn

import (
	"errors"
	"sync"
)

// ErrInjectorStopped is returned when events are injected after the pipeline
// stopped.
var ErrInjectorStopped = errors.New("aegissdn: injector stopped")

// ErrInjectorNotStarted is returned when events are injected before the
// runtime started.
var ErrInjectorNotStarted = errors.New("aegissdn: injector not started")

// Injector is an EventSource fed by the embedding application, typically from
// its own OpenFlow transport. Calls block while the pipeline applies
// backpressure and fail once the runtime shuts down.
type Injector struct {
	mu   sync.RWMutex
	out  chan<- *Event
	stop chan struct{}
	once sync.Once
}

func NewInjector() *Injector {
	return &Injector{stop: make(chan struct{})}
}

func (in *Injector) Start(out chan<- *Event) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	select {
	case <-in.stop:
		return ErrInjectorStopped
	default:
	}
	in.out = out
	return nil
}

// Stop rejects further events and waits for in-flight sends to finish.
func (in *Injector) Stop() error {
	in.once.Do(func() { close(in.stop) })
	in.mu.Lock()
	in.out = nil
	in.mu.Unlock()
	return nil
}

// Inject delivers ev to the pipeline.
func (in *Injector) Inject(ev *Event) error {
	if ev == nil {
		return nil
	}
	in.mu.RLock()
	defer in.mu.RUnlock()

	select {
	case <-in.stop:
		return ErrInjectorStopped
	default:
	}
	if in.out == nil {
		return ErrInjectorNotStarted
	}
	select {
	case in.out <- ev:
		return nil
	case <-in.stop:
		return ErrInjectorStopped
	}
}

// SwitchConnected announces a datapath that completed its handshake.
func (in *Injector) SwitchConnected(switchID uint64) error {
	return in.Inject(NewSwitchConnectedEvent(switchID))
}

// FrameArrived reports a frame the switch sent to the controller. Pass
// NoBuffer as bufferID when the switch did not keep a copy.
func (in *Injector) FrameArrived(switchID uint64, inPort, bufferID uint32, data []byte) error {
	return in.Inject(NewFrameEvent(switchID, inPort, bufferID, data))
}
