package aegissdn

import (
	"github.com/ghalamif/AegisSDN/internal/adapters/pcapreplay"
	"github.com/ghalamif/AegisSDN/internal/app/config"
	"github.com/ghalamif/AegisSDN/internal/contract"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls worker count, queue depth and queue-full behaviour.
	Policy = ports.Policy
	// ControllerConfig selects audit or monitor mode.
	ControllerConfig = config.ControllerConfig
	// DetectionConfig tunes the rate limiter and deny-rule timeouts.
	DetectionConfig = config.DetectionConfig
	// Thresholds are the telemetry admission limits.
	Thresholds = contract.Thresholds
	// LedgerConfig configures the journal, snapshot and signing key.
	LedgerConfig = config.LedgerConfig
	// TrafficLogConfig configures the monitor-mode traffic log.
	TrafficLogConfig = config.TrafficLogConfig
	// SourceConfig selects where switch events come from.
	SourceConfig = config.SourceConfig
	// PCAPConfig replays a capture file as a single switch.
	PCAPConfig = pcapreplay.Config
	// MirrorConfig configures the Postgres ledger mirror.
	MirrorConfig = config.MirrorConfig
	// MetricsConfig configures the metrics and dashboard HTTP server.
	MetricsConfig = config.MetricsConfig
	// LoggingConfig configures the zap logger.
	LoggingConfig = config.LoggingConfig
)

const (
	ModeAudit   = config.ModeAudit
	ModeMonitor = config.ModeMonitor

	SourceExternal = config.SourceExternal
	SourcePCAP     = config.SourcePCAP
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultThresholds returns the stock telemetry limits.
func DefaultThresholds() Thresholds {
	return contract.DefaultThresholds()
}
