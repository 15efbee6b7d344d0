package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	Observe(name string, v float64)

	SetGauge(name string, v float64)

	RecordVerdict(v domain.Verdict)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by Observability implementations.
const (
	MetricFrames              = "aegis_frames_total"
	MetricLedgerBlocks        = "aegis_ledger_blocks_total"
	MetricLedgerBlockSize     = "aegis_ledger_block_size_bytes"
	MetricLedgerPersistFailed = "aegis_ledger_persist_failures_total"
	MetricPipelineLatency     = "aegis_pipeline_latency_seconds"
	MetricQueueLength         = "aegis_queue_length"
	MetricQueueDropped        = "aegis_queue_dropped_total"
	MetricJournalSize         = "aegis_journal_size_bytes"
	MetricMirrorBlocks        = "aegis_mirror_blocks_total"
	MetricMirrorFailures      = "aegis_mirror_failures_total"
	MetricSwitchCommandErrors = "aegis_switch_command_errors_total"
)
