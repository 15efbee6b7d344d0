package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the switch notifications the controller reacts to.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	// EventSwitchConnected is raised once per datapath handshake.
	EventSwitchConnected
	// EventFrameArrived is a frame the switch could not forward on its own.
	EventFrameArrived
)

func (k EventKind) String() string {
	switch k {
	case EventSwitchConnected:
		return "switch_connected"
	case EventFrameArrived:
		return "frame_arrived"
	default:
		return "unknown"
	}
}

// NoBuffer marks a frame the switch did not buffer; the raw bytes must be
// sent back with the forwarding command.
const NoBuffer uint32 = 0xffffffff

// Event is the canonical unit of work flowing from a switch adapter into the
// decision pipeline.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	SwitchID   uint64    `json:"switch_id"`
	InPort     uint32    `json:"in_port"`
	BufferID   uint32    `json:"buffer_id"`
	Data       []byte    `json:"data,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewFrameEvent stamps a frame-arrival notification with an ID and receipt time.
func NewFrameEvent(switchID uint64, inPort, bufferID uint32, data []byte) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       EventFrameArrived,
		SwitchID:   switchID,
		InPort:     inPort,
		BufferID:   bufferID,
		Data:       data,
		ReceivedAt: time.Now(),
	}
}

// NewSwitchConnectedEvent announces a datapath that finished its handshake.
func NewSwitchConnectedEvent(switchID uint64) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       EventSwitchConnected,
		SwitchID:   switchID,
		BufferID:   NoBuffer,
		ReceivedAt: time.Now(),
	}
}

// Buffered reports whether the switch kept a copy of the frame.
func (e *Event) Buffered() bool {
	return e.BufferID != NoBuffer
}
