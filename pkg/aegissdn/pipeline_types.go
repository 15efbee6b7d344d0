package aegissdn

import (
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Event is a switch notification flowing into the decision pipeline.
type Event = domain.Event

// EventKind distinguishes handshakes from frame arrivals.
type EventKind = domain.EventKind

// Block is one link of the signed audit chain.
type Block = domain.Block

// Record is the audit entry stored in a block.
type Record = domain.Record

// TrafficEntry is one line of the monitor-mode traffic log.
type TrafficEntry = domain.TrafficEntry

// Verdict is the terminal outcome of a frame.
type Verdict = domain.Verdict

// FlowRule is a flow-table modification sent to a switch.
type FlowRule = domain.FlowRule

// PacketOut asks a switch to emit a frame.
type PacketOut = domain.PacketOut

// EventSource delivers switch events (OpenFlow transport, capture replay, tests).
type EventSource = ports.EventSource

// Datapath issues flow-table and packet-out commands to switches.
type Datapath = ports.Datapath

// BlockSink mirrors ledger blocks into a downstream system.
type BlockSink = ports.BlockSink

// BlockQueue buffers blocks on their way to the sinks.
type BlockQueue = ports.BlockQueue

// BlockJournal is the durable append-only log behind the ledger.
type BlockJournal = ports.BlockJournal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// Observability emits structured logs and metrics.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// NoBuffer marks a frame the switch did not buffer.
const NoBuffer = domain.NoBuffer

// Reserved output ports.
const (
	PortFlood      = domain.PortFlood
	PortController = domain.PortController
)

// NewFrameEvent stamps a frame-arrival notification with an ID and receipt time.
func NewFrameEvent(switchID uint64, inPort, bufferID uint32, data []byte) *Event {
	return domain.NewFrameEvent(switchID, inPort, bufferID, data)
}

// NewSwitchConnectedEvent announces a datapath that finished its handshake.
func NewSwitchConnectedEvent(switchID uint64) *Event {
	return domain.NewSwitchConnectedEvent(switchID)
}
