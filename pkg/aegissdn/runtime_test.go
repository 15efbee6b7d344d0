package aegissdn

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ghalamif/AegisSDN/internal/adapters/datapath"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ledger"
	"github.com/ghalamif/AegisSDN/internal/testutil"
)

func auditConfig(t *testing.T, dir string) *Config {
	t.Helper()
	keyPath, _ := testutil.WriteSigningKey(t)
	return &Config{
		Policy: Policy{MaxQueueLen: 16, MaxBatchSize: 4, IdleSleep: time.Millisecond, Workers: 2},
		Ledger: LedgerConfig{
			Dir:            filepath.Join(dir, "journal"),
			SnapshotPath:   filepath.Join(dir, "blockchain.json"),
			PrivateKeyPath: keyPath,
			PublicKeyPath:  filepath.Join(dir, "public.pem"),
		},
		TrafficLog: TrafficLogConfig{Path: filepath.Join(dir, "latest_packets.json")},
	}
}

type blockCollector struct {
	mu     sync.Mutex
	blocks []Block
}

func (c *blockCollector) collect(batch []Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, batch...)
	return nil
}

func (c *blockCollector) indices() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Index
	}
	return out
}

func shutdown(t *testing.T, rt *Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(ctx))
}

func TestRuntimeAuditEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := auditConfig(t, dir)
	dp := datapath.NewRecorder(nil)
	mirror := &blockCollector{}

	rt, err := NewRuntime(cfg,
		WithLogger(zaptest.NewLogger(t)),
		WithDatapath(dp),
		WithSink(NewCallbackSink("test", mirror.collect)),
		WithoutHTTP(),
	)
	require.NoError(t, err)
	require.NoError(t, rt.Start())

	inj := rt.Injector()
	require.NotNil(t, inj)
	require.NoError(t, inj.SwitchConnected(1))

	coap := testutil.UDPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2", 5683, []byte("reading"))
	require.NoError(t, inj.FrameArrived(1, 1, NoBuffer, coap))

	hot := testutil.TCPFrame(t, testutil.MAC3, testutil.MAC2, "10.0.0.3", "10.0.0.2", 1883, []byte("temp:45 hum:80"))
	require.NoError(t, inj.FrameArrived(1, 2, NoBuffer, hot))

	require.Eventually(t, func() bool { return len(mirror.indices()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{0, 1}, mirror.indices())

	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/verify", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Valid  bool `json:"valid"`
		Blocks int  `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	assert.True(t, verify.Valid)
	assert.Equal(t, 2, verify.Blocks)

	shutdown(t, rt)
	assert.ErrorIs(t, inj.FrameArrived(1, 1, NoBuffer, coap), ErrInjectorStopped)

	assert.Len(t, dp.Rules(), 2, "handshake rules only")
	assert.Len(t, dp.Forwards(), 1, "the MQTT frame violating the contract is not forwarded")

	pub, err := ledger.LoadPublicKey(cfg.Ledger.PublicKeyPath)
	require.NoError(t, err)
	assert.NoError(t, rt.Ledger().Verify())
	assert.True(t, ledger.Verify(rt.Ledger().Blocks(), pub))
}

func TestRuntimeRecoversLedgerAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := auditConfig(t, dir)
	coap := testutil.UDPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2", 5683, nil)

	for run := 1; run <= 2; run++ {
		rt, err := NewRuntime(cfg, WithLogger(zaptest.NewLogger(t)), WithoutHTTP())
		require.NoError(t, err)
		require.Equal(t, run, rt.Ledger().Len(), "run %d starts from the recovered chain", run)

		require.True(t, rt.HandleEvent(NewFrameEvent(1, 1, NoBuffer, coap)))
		require.Equal(t, run+1, rt.Ledger().Len())
		shutdown(t, rt)
	}
}

type refusingSource struct{}

func (refusingSource) Start(chan<- *Event) error { return stderrors.New("listener unavailable") }
func (refusingSource) Stop() error               { return nil }

func TestRuntimeStartFailureStopsMirror(t *testing.T) {
	cfg := auditConfig(t, t.TempDir())
	rt, err := NewRuntime(cfg,
		WithLogger(zaptest.NewLogger(t)),
		WithSource(refusingSource{}),
		WithSink(NewCallbackSink("test", (&blockCollector{}).collect)),
		WithoutHTTP(),
	)
	require.NoError(t, err)

	require.Error(t, rt.Start())
	assert.Nil(t, rt.ingestCancel)
	require.NotNil(t, rt.ingestDone)
	select {
	case <-rt.ingestDone:
	case <-time.After(time.Second):
		t.Fatal("mirror loop still running after a failed start")
	}
	shutdown(t, rt)
}

func TestRuntimeRequiresSigningKey(t *testing.T) {
	cfg := auditConfig(t, t.TempDir())
	cfg.Ledger.PrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")

	_, err := NewRuntime(cfg, WithLogger(zaptest.NewLogger(t)), WithoutHTTP())
	require.Error(t, err)
}

func TestRuntimeRejectsInvalidConfig(t *testing.T) {
	_, err := NewRuntime(nil)
	require.Error(t, err)

	cfg := auditConfig(t, t.TempDir())
	cfg.Controller.Mode = "bridge"
	_, err = NewRuntime(cfg, WithoutHTTP())
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestRuntimeMonitorMode(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Policy:     Policy{MaxQueueLen: 8, Workers: 1},
		Controller: ControllerConfig{Mode: ModeMonitor},
		TrafficLog: TrafficLogConfig{Path: filepath.Join(dir, "latest_packets.json"), MaxEntries: 5},
	}
	rt, err := NewRuntime(cfg, WithLogger(zaptest.NewLogger(t)), WithoutHTTP())
	require.NoError(t, err)
	assert.Nil(t, rt.Ledger())
	assert.Nil(t, rt.PublicKey())

	require.NoError(t, rt.Start())
	frame := testutil.TCPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2", 80, []byte("GET /"))
	for i := 0; i < 7; i++ {
		require.NoError(t, rt.Injector().FrameArrived(1, 1, NoBuffer, frame))
	}
	shutdown(t, rt)

	entries := rt.Traffic()
	require.Len(t, entries, 5)
	assert.Equal(t, "HTTP", string(entries[0].Protocol))
}

func TestInjectorBeforeStart(t *testing.T) {
	inj := NewInjector()
	assert.ErrorIs(t, inj.SwitchConnected(1), ErrInjectorNotStarted)
	require.NoError(t, inj.Stop())
	assert.ErrorIs(t, inj.Start(make(chan *Event)), ErrInjectorStopped)
}

func TestInjectorStopUnblocksSender(t *testing.T) {
	inj := NewInjector()
	require.NoError(t, inj.Start(make(chan *Event)))

	errCh := make(chan error, 1)
	go func() { errCh <- inj.SwitchConnected(1) }()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, inj.Stop())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrInjectorStopped)
	case <-time.After(time.Second):
		t.Fatal("sender stayed blocked after Stop")
	}
}
