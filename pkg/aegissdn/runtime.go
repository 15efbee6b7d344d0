package aegissdn

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	stderrors "errors"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/adapters/dashboard"
	"github.com/ghalamif/AegisSDN/internal/adapters/datapath"
	"github.com/ghalamif/AegisSDN/internal/adapters/observability"
	"github.com/ghalamif/AegisSDN/internal/adapters/pcapreplay"
	"github.com/ghalamif/AegisSDN/internal/adapters/queue"
	"github.com/ghalamif/AegisSDN/internal/adapters/sink"
	"github.com/ghalamif/AegisSDN/internal/adapters/snapshot"
	"github.com/ghalamif/AegisSDN/internal/adapters/telemetry"
	"github.com/ghalamif/AegisSDN/internal/adapters/wal"
	"github.com/ghalamif/AegisSDN/internal/anomaly"
	"github.com/ghalamif/AegisSDN/internal/app/config"
	"github.com/ghalamif/AegisSDN/internal/app/pipeline"
	"github.com/ghalamif/AegisSDN/internal/contract"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ledger"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        EventSource
	datapath      Datapath
	sinks         []BlockSink
	observability Observability
	logger        *zap.Logger
	registry      *prometheus.Registry
	noHTTP        bool
}

// WithSource replaces the configured event source (OpenFlow transport,
// simulators, tests).
func WithSource(src EventSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithDatapath sends switch commands to dp instead of the in-memory recorder.
func WithDatapath(dp Datapath) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.datapath = dp
	}
}

// WithSink adds a ledger mirror next to the configured Postgres sink.
func WithSink(s BlockSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger reuses an existing zap logger instead of building one from config.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// WithoutHTTP disables the metrics and dashboard listener; Handler still works.
func WithoutHTTP() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.noHTTP = true
	}
}

// Runtime wires source → dispatcher → controller → ledger → mirror queue →
// sinks and exposes lifecycle hooks for embedding the controller in any Go
// service.
type Runtime struct {
	cfg      *Config
	policy   ports.Policy
	log      *zap.Logger
	registry *prometheus.Registry
	obs      ports.Observability

	signer   *ledger.Signer
	journal  *wal.FileJournal
	ledger   *ledger.Ledger
	queue    *queue.MemQueue
	sinks    []ports.BlockSink
	db       *sql.DB
	traffic  *snapshot.TrafficLog
	datapath ports.Datapath

	controller *pipeline.Controller
	dispatcher *pipeline.Dispatcher
	source     ports.EventSource
	injector   *Injector
	handler    http.Handler
	noHTTP     bool

	edge         *pipeline.EdgePipeline
	httpSrv      *http.Server
	ingestCancel context.CancelFunc
	ingestDone   chan struct{}
	gaugeStop    chan struct{}
	gaugeDone    chan struct{}
}

// NewRuntime bootstraps the default adapters: zap + Prometheus observability,
// file journal and signed ledger (audit mode), traffic log (monitor mode),
// Postgres mirror when configured, and the configured event source. A missing
// or unusable signing key is fatal.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, errors.New(errors.KindValidation, "config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	rt = &Runtime{cfg: cfg, policy: cfg.Policy, sinks: o.sinks, noHTTP: o.noHTTP}
	defer func() {
		if err != nil {
			rt.closeResources()
		}
	}()

	rt.log = o.logger
	if rt.log == nil {
		if rt.log, err = observability.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding); err != nil {
			return nil, err
		}
	}
	rt.registry = o.registry
	if rt.registry == nil {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	rt.obs = o.observability
	if rt.obs == nil {
		rt.obs = observability.NewPromObs(rt.log, rt.registry)
	}
	rt.datapath = o.datapath
	if rt.datapath == nil {
		rt.datapath = datapath.NewRecorder(rt.obs)
	}

	deps := pipeline.Deps{
		Datapath: rt.datapath,
		Obs:      rt.obs,
		Rate:     anomaly.NewRateLimiter(cfg.Detection.RateLimit, cfg.Detection.RateWindow),
	}
	settings := pipeline.Settings{
		Mode:                 pipeline.ModeAudit,
		RateBlockIdleTimeout: cfg.Detection.RateBlockIdleTimeout,
		ARPBlockIdleTimeout:  cfg.Detection.ARPBlockIdleTimeout,
		BlockPriority:        cfg.Detection.BlockPriority,
	}

	if cfg.Controller.Mode == config.ModeMonitor {
		settings.Mode = pipeline.ModeMonitor
		rt.traffic = snapshot.NewTrafficLog(cfg.TrafficLog.Path, cfg.TrafficLog.MaxEntries)
		deps.Traffic = rt.traffic
	} else {
		if err := rt.openLedger(); err != nil {
			return nil, err
		}
		deps.Ledger = rt.ledger
		deps.Contract = contract.NewEngine(telemetry.NewRegexExtractor(), cfg.Contract)
	}

	if rt.controller, err = pipeline.NewController(deps, settings); err != nil {
		return nil, err
	}
	rt.dispatcher = pipeline.NewControllerDispatcher(rt.controller, rt.obs)

	switch {
	case o.source != nil:
		rt.source = o.source
	case cfg.Source.Kind == config.SourcePCAP:
		if rt.source, err = pcapreplay.NewSource(cfg.Source.PCAP, rt.obs); err != nil {
			return nil, err
		}
	default:
		rt.injector = NewInjector()
		rt.source = rt.injector
	}

	rt.handler = rt.buildHandler()
	return rt, nil
}

func (rt *Runtime) openLedger() error {
	cfg := rt.cfg
	signer, err := ledger.LoadSigner(cfg.Ledger.PrivateKeyPath)
	if err != nil {
		return err
	}
	rt.signer = signer
	if cfg.Ledger.PublicKeyPath != "" {
		if err := ledger.WritePublicKey(cfg.Ledger.PublicKeyPath, signer.Public()); err != nil {
			return err
		}
	}

	if rt.journal, err = wal.NewFileJournal(cfg.Ledger.Dir, cfg.Ledger.FsyncEnabled()); err != nil {
		return err
	}

	rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	if cfg.Mirror.ConnString != "" {
		if rt.db, err = sql.Open("postgres", cfg.Mirror.ConnString); err != nil {
			return errors.Wrap(err, errors.KindValidation, "open mirror database")
		}
		pg := sink.NewPostgresSink(rt.db, cfg.Mirror.Table)
		if err := pg.EnsureSchema(); err != nil {
			return err
		}
		rt.sinks = append([]ports.BlockSink{pg}, rt.sinks...)
	}

	var hook func(b *Block)
	if len(rt.sinks) > 0 {
		hook = pipeline.MirrorHook(rt.queue, rt.policy, rt.obs)
	}
	rt.ledger, err = ledger.Open(rt.journal, signer, snapshot.NewChainFile(cfg.Ledger.SnapshotPath), rt.obs, ledger.Options{
		SnapshotEvery: cfg.Ledger.SnapshotEvery,
		OnAppend:      hook,
	})
	return err
}

func (rt *Runtime) buildHandler() http.Handler {
	var (
		chain   dashboard.ChainReader
		traffic dashboard.TrafficReader
		pub     = rt.PublicKey()
	)
	if rt.ledger != nil {
		chain = dashboard.ChainFunc(rt.ledger.Blocks)
	}
	if rt.traffic != nil {
		traffic = dashboard.TrafficFunc(rt.traffic.Entries)
	}
	return dashboard.NewRouter(dashboard.NewAPI(chain, traffic, pub), rt.registry)
}

// Start replays unmirrored blocks, then starts the mirror, the edge pipeline
// and the HTTP server. It returns immediately; call Run to block on a context
// instead.
func (rt *Runtime) Start() error {
	if rt == nil {
		return errors.New(errors.KindValidation, "runtime is nil")
	}

	if rt.ledger != nil && len(rt.sinks) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		rt.ingestCancel = cancel
		rt.ingestDone = make(chan struct{})
		go func() {
			pipeline.RunIngestPipeline(ctx, rt.journal, rt.queue, rt.sinks, rt.policy, rt.obs)
			close(rt.ingestDone)
		}()

		n, err := pipeline.ReplayUnmirrored(rt.journal, rt.queue, rt.policy, rt.obs)
		if err != nil {
			rt.obs.LogError("mirror replay incomplete", err, ports.Field{Key: "replayed", Value: n})
		} else if n > 0 {
			rt.obs.LogInfo("mirror replay queued", ports.Field{Key: "blocks", Value: n})
		}
	}

	edge, err := pipeline.RunEdgePipeline(rt.source, rt.dispatcher, rt.policy, rt.obs)
	if err != nil {
		_ = rt.stopIngest(context.Background())
		return err
	}
	rt.edge = edge

	if !rt.noHTTP {
		rt.startHTTP()
	}
	rt.gaugeStop = make(chan struct{})
	rt.gaugeDone = make(chan struct{})
	go rt.recordResourceGauges(time.Second)

	rt.obs.LogInfo("controller started",
		ports.Field{Key: "mode", Value: rt.cfg.Controller.Mode},
		ports.Field{Key: "source", Value: rt.cfg.Source.Kind},
		ports.Field{Key: "workers", Value: rt.policy.Workers},
	)
	return nil
}

// stopIngest cancels the mirror loop and waits for it to exit.
func (rt *Runtime) stopIngest(ctx context.Context) error {
	if rt.ingestCancel == nil {
		return nil
	}
	rt.ingestCancel()
	rt.ingestCancel = nil
	select {
	case <-rt.ingestDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the runtime and blocks until ctx is cancelled, then shuts down
// gracefully.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown drains the edge pipeline, flushes the ledger snapshot, stops the
// mirror and releases files and connections.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if rt.edge != nil {
		if err := rt.edge.Stop(); err != nil {
			errs = append(errs, err)
		}
		rt.edge = nil
	}
	if rt.gaugeStop != nil {
		close(rt.gaugeStop)
		<-rt.gaugeDone
		rt.gaugeStop = nil
	}
	if rt.ledger != nil {
		if err := rt.ledger.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.stopIngest(ctx); err != nil {
		errs = append(errs, err)
	}
	if rt.httpSrv != nil {
		if err := rt.httpSrv.Shutdown(ctx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		rt.httpSrv = nil
	}

	errs = append(errs, rt.closeResources())
	_ = rt.log.Sync()
	return stderrors.Join(errs...)
}

func (rt *Runtime) closeResources() error {
	var errs []error
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
		rt.db = nil
	}
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		rt.journal = nil
	}
	return stderrors.Join(errs...)
}

func (rt *Runtime) startHTTP() {
	rt.httpSrv = &http.Server{
		Addr:              rt.cfg.Metrics.Addr,
		Handler:           rt.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := rt.httpSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			rt.obs.LogError("http server exited", err, ports.Field{Key: "addr", Value: srv.Addr})
		}
	}()
}

func (rt *Runtime) recordResourceGauges(interval time.Duration) {
	defer close(rt.gaugeDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rt.gaugeStop:
			return
		case <-ticker.C:
			if rt.journal != nil {
				rt.obs.SetGauge(ports.MetricJournalSize, float64(rt.journal.Stats().SizeBytes))
			}
			if rt.queue != nil {
				rt.obs.SetGauge(ports.MetricQueueLength, float64(rt.queue.Len()))
			}
		}
	}
}

// Injector is the event source used when source.kind is "external"; it is
// nil otherwise.
func (rt *Runtime) Injector() *Injector { return rt.injector }

// Ledger exposes the live audit chain; nil in monitor mode.
func (rt *Runtime) Ledger() *ledger.Ledger { return rt.ledger }

// Traffic returns the monitor-mode traffic log entries.
func (rt *Runtime) Traffic() []TrafficEntry {
	if rt.traffic == nil {
		return nil
	}
	return rt.traffic.Entries()
}

// Handler serves the dashboard API and /metrics.
func (rt *Runtime) Handler() http.Handler { return rt.handler }

// Registry is the Prometheus registry the runtime's metrics live on.
func (rt *Runtime) Registry() *prometheus.Registry { return rt.registry }

// HandleEvent runs ev through the dispatcher synchronously, bypassing the
// source and worker pool.
func (rt *Runtime) HandleEvent(ev *Event) bool { return rt.dispatcher.Dispatch(ev) }

// PublicKey returns the ledger verification key; nil in monitor mode.
func (rt *Runtime) PublicKey() *ecdsa.PublicKey {
	if rt.signer == nil {
		return nil
	}
	return rt.signer.Public()
}
