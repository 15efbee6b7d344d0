package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// PromObs implements ports.Observability with zap logging and Prometheus
// metrics. Unknown metric names are ignored.
type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	verdicts *prometheus.CounterVec
}

// NewPromObs registers the controller metrics on reg. A nil logger discards
// log output.
func NewPromObs(logger *zap.Logger, reg prometheus.Registerer) *PromObs {
	if logger == nil {
		logger = zap.NewNop()
	}

	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricFrames,
		Help: "Frame-arrival events processed by the decision pipeline.",
	})
	blocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricLedgerBlocks,
		Help: "Blocks appended to the audit ledger.",
	})
	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricLedgerPersistFailed,
		Help: "Ledger appends rejected because the journal write failed.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricQueueDropped,
		Help: "Events or blocks lost due to queue backpressure policies.",
	})
	mirrored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricMirrorBlocks,
		Help: "Blocks written to mirror sinks.",
	})
	mirrorFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricMirrorFailures,
		Help: "Failed mirror sink batch writes.",
	})
	switchErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricSwitchCommandErrors,
		Help: "Rule installs or forwards rejected by the switch adapter.",
	})
	journalGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricJournalSize,
		Help: "Size of the ledger journal on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricQueueLength,
		Help: "Blocks waiting in the mirror queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricPipelineLatency,
		Help:    "Time from event receipt to terminal verdict.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})
	blockSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricLedgerBlockSize,
		Help:    "Serialized size of signed ledger blocks.",
		Buckets: prometheus.LinearBuckets(200, 50, 10),
	})
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aegis_verdicts_total",
		Help: "Terminal pipeline verdicts by outcome.",
	}, []string{"verdict"})
	for _, v := range domain.Verdicts {
		verdicts.WithLabelValues(v.String())
	}

	reg.MustRegister(frames, blocks, persistFailures, queueDrops, mirrored, mirrorFailures,
		switchErrors, journalGauge, queueGauge, latency, blockSize, verdicts)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricFrames:              frames,
			ports.MetricLedgerBlocks:        blocks,
			ports.MetricLedgerPersistFailed: persistFailures,
			ports.MetricQueueDropped:        queueDrops,
			ports.MetricMirrorBlocks:        mirrored,
			ports.MetricMirrorFailures:      mirrorFailures,
			ports.MetricSwitchCommandErrors: switchErrors,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricJournalSize: journalGauge,
			ports.MetricQueueLength: queueGauge,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricPipelineLatency: latency,
			ports.MetricLedgerBlockSize: blockSize,
		},
		verdicts: verdicts,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

// LogCritical logs at error level with a critical marker; the process keeps
// running.
func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) Observe(name string, v float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordVerdict(v domain.Verdict) {
	p.verdicts.WithLabelValues(v.String()).Inc()
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
