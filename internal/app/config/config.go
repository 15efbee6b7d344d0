package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisSDN/internal/adapters/pcapreplay"
	"github.com/ghalamif/AegisSDN/internal/adapters/snapshot"
	"github.com/ghalamif/AegisSDN/internal/anomaly"
	"github.com/ghalamif/AegisSDN/internal/contract"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

const (
	ModeAudit   = "audit"
	ModeMonitor = "monitor"

	SourceExternal = "external"
	SourcePCAP     = "pcap"
)

type Config struct {
	Policy     ports.Policy        `yaml:"policy"`
	Controller ControllerConfig    `yaml:"controller"`
	Detection  DetectionConfig     `yaml:"detection"`
	Contract   contract.Thresholds `yaml:"contract"`
	Ledger     LedgerConfig        `yaml:"ledger"`
	TrafficLog TrafficLogConfig    `yaml:"traffic_log"`
	Source     SourceConfig        `yaml:"source"`
	Mirror     MirrorConfig        `yaml:"mirror"`
	Metrics    MetricsConfig       `yaml:"metrics"`
	Logging    LoggingConfig       `yaml:"logging"`
}

type ControllerConfig struct {
	// Mode is "audit" (full decision pipeline) or "monitor" (learning switch
	// plus traffic log).
	Mode string `yaml:"mode"`
}

type DetectionConfig struct {
	RateLimit            int           `yaml:"rate_limit"`
	RateWindow           time.Duration `yaml:"rate_window"`
	RateBlockIdleTimeout time.Duration `yaml:"rate_block_idle_timeout"`
	ARPBlockIdleTimeout  time.Duration `yaml:"arp_block_idle_timeout"`
	BlockPriority        uint16        `yaml:"block_priority"`
}

type LedgerConfig struct {
	Dir            string `yaml:"dir"`
	SnapshotPath   string `yaml:"snapshot_path"`
	SnapshotEvery  int    `yaml:"snapshot_every"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PublicKeyPath  string `yaml:"public_key_path"`
	Fsync          *bool  `yaml:"fsync"`
}

// FsyncEnabled defaults to true when unset.
func (l LedgerConfig) FsyncEnabled() bool {
	return l.Fsync == nil || *l.Fsync
}

type TrafficLogConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

type SourceConfig struct {
	Kind string            `yaml:"kind"`
	PCAP pcapreplay.Config `yaml:"pcap"`
}

type MirrorConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "read config %s", path)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "parse config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 256
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.Workers == 0 {
		c.Policy.Workers = 4
	}
	if c.Controller.Mode == "" {
		c.Controller.Mode = ModeAudit
	}
	if c.Detection.RateLimit == 0 {
		c.Detection.RateLimit = anomaly.DefaultRateLimit
	}
	if c.Detection.RateWindow == 0 {
		c.Detection.RateWindow = anomaly.DefaultRateWindow
	}
	if c.Detection.RateBlockIdleTimeout == 0 {
		c.Detection.RateBlockIdleTimeout = 60 * time.Second
	}
	if c.Detection.ARPBlockIdleTimeout == 0 {
		c.Detection.ARPBlockIdleTimeout = 120 * time.Second
	}
	if c.Detection.BlockPriority == 0 {
		c.Detection.BlockPriority = 100
	}
	if c.Contract == (contract.Thresholds{}) {
		c.Contract = contract.DefaultThresholds()
	}
	if c.Ledger.Dir == "" {
		c.Ledger.Dir = "./data/ledger"
	}
	if c.Ledger.SnapshotPath == "" {
		c.Ledger.SnapshotPath = "/tmp/blockchain.json"
	}
	if c.Ledger.SnapshotEvery == 0 {
		c.Ledger.SnapshotEvery = 1
	}
	if c.TrafficLog.Path == "" {
		c.TrafficLog.Path = "/tmp/latest_packets.json"
	}
	if c.TrafficLog.MaxEntries == 0 {
		c.TrafficLog.MaxEntries = snapshot.DefaultTrafficEntries
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceExternal
	}
	if c.Source.Kind == SourcePCAP {
		c.Source.PCAP.ApplyDefaults()
	}
	if c.Mirror.Table == "" {
		c.Mirror.Table = "ledger_blocks"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
}

func (c *Config) Validate() error {
	switch c.Controller.Mode {
	case ModeAudit:
		if c.Ledger.PrivateKeyPath == "" {
			return invalid("ledger.private_key_path is required in audit mode")
		}
		if c.Ledger.Dir == "" {
			return invalid("ledger.dir is required")
		}
	case ModeMonitor:
	default:
		return invalid("controller.mode must be %q or %q, got %q", ModeAudit, ModeMonitor, c.Controller.Mode)
	}

	switch c.Policy.OnQueueFull {
	case "block", "drop":
	default:
		return invalid("policy.on_queue_full must be block or drop, got %q", c.Policy.OnQueueFull)
	}
	if c.Policy.Workers < 1 {
		return invalid("policy.workers must be positive")
	}
	if c.Policy.MaxQueueLen < 1 || c.Policy.MaxBatchSize < 1 {
		return invalid("policy queue and batch sizes must be positive")
	}

	if c.Detection.RateLimit < 1 || c.Detection.RateWindow <= 0 {
		return invalid("detection rate limit and window must be positive")
	}
	if c.Contract.HumLow > c.Contract.HumHigh {
		return invalid("contract.hum_low (%d) exceeds contract.hum_high (%d)", c.Contract.HumLow, c.Contract.HumHigh)
	}
	if c.Ledger.SnapshotEvery < 0 {
		return invalid("ledger.snapshot_every must not be negative")
	}
	if c.TrafficLog.MaxEntries < 0 {
		return invalid("traffic_log.max_entries must not be negative")
	}

	switch c.Source.Kind {
	case SourceExternal:
	case SourcePCAP:
		if err := c.Source.PCAP.Validate(); err != nil {
			return errors.Wrap(err, errors.KindValidation, "config: source.pcap")
		}
	default:
		return invalid("source.kind must be %q or %q, got %q", SourceExternal, SourcePCAP, c.Source.Kind)
	}

	if c.Metrics.Addr == "" {
		return invalid("metrics.addr is required")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.Errorf(errors.KindValidation, "config: "+format, args...)
}
