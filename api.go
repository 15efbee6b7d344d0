package aegissdn

import (
	base "github.com/ghalamif/AegisSDN/pkg/aegissdn"
)

// Re-exported errors for convenience.
var (
	ErrInjectorStopped    = base.ErrInjectorStopped
	ErrInjectorNotStarted = base.ErrInjectorNotStarted
	ErrChannelSinkClosed  = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisSDN directly.
type (
	Config           = base.Config
	Policy           = base.Policy
	ControllerConfig = base.ControllerConfig
	DetectionConfig  = base.DetectionConfig
	Thresholds       = base.Thresholds
	LedgerConfig     = base.LedgerConfig
	TrafficLogConfig = base.TrafficLogConfig
	SourceConfig     = base.SourceConfig
	PCAPConfig       = base.PCAPConfig
	MirrorConfig     = base.MirrorConfig
	MetricsConfig    = base.MetricsConfig
	LoggingConfig    = base.LoggingConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Injector         = base.Injector
	Event            = base.Event
	Block            = base.Block
	Record           = base.Record
	TrafficEntry     = base.TrafficEntry
	Verdict          = base.Verdict
	FlowRule         = base.FlowRule
	PacketOut        = base.PacketOut
	BlockBatchFunc   = base.BlockBatchFunc
	EventSource      = base.EventSource
	Datapath         = base.Datapath
	BlockSink        = base.BlockSink
	Observability    = base.Observability
	Field            = base.Field
)

const (
	ModeAudit      = base.ModeAudit
	ModeMonitor    = base.ModeMonitor
	SourceExternal = base.SourceExternal
	SourcePCAP     = base.SourcePCAP
	NoBuffer       = base.NoBuffer
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src EventSource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInDatapath(dp Datapath) StreamInOption {
	return base.StreamInDatapath(dp)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s BlockSink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutCallback(name string, fn BlockBatchFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSource(src EventSource) RuntimeOption {
	return base.WithSource(src)
}

func WithDatapath(dp Datapath) RuntimeOption {
	return base.WithDatapath(dp)
}

func WithSink(s BlockSink) RuntimeOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithoutHTTP() RuntimeOption {
	return base.WithoutHTTP()
}

// Event sources.
func NewInjector() *Injector {
	return base.NewInjector()
}

func NewFrameEvent(switchID uint64, inPort, bufferID uint32, data []byte) *Event {
	return base.NewFrameEvent(switchID, inPort, bufferID, data)
}

func NewSwitchConnectedEvent(switchID uint64) *Event {
	return base.NewSwitchConnectedEvent(switchID)
}

// Sink adapters.
func NewCallbackSink(name string, fn BlockBatchFunc) BlockSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (BlockSink, <-chan []Block, func()) {
	return base.NewChannelSink(name, buffer)
}
