package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisSDN/internal/adapters/snapshot"
	"github.com/ghalamif/AegisSDN/internal/adapters/wal"
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ledger"
	"github.com/ghalamif/AegisSDN/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

// writeChain builds a two-block ledger snapshot signed by a fresh key.
func writeChain(t *testing.T, dir string) (chainPath, keyPath, pubPath string) {
	t.Helper()
	keyPath = filepath.Join(dir, "key.pem")
	pubPath = filepath.Join(dir, "pub.pem")
	chainPath = filepath.Join(dir, "blockchain.json")

	_, err := execute(t, "keygen", "--out", keyPath, "--pub", pubPath)
	require.NoError(t, err)

	signer, err := ledger.LoadSigner(keyPath)
	require.NoError(t, err)
	journal, err := wal.NewFileJournal(filepath.Join(dir, "journal"), false)
	require.NoError(t, err)
	defer journal.Close()

	l, err := ledger.Open(journal, signer, snapshot.NewChainFile(chainPath), testutil.NewObs(), ledger.Options{})
	require.NoError(t, err)
	_, err = l.Append(domain.Record{Protocol: domain.LabelCoAP, SrcIP: "10.0.0.1", DstIP: "10.0.0.2", DstPort: 5683, Timestamp: "2026-01-01 00:00:00.000000", InPort: 1})
	require.NoError(t, err)
	return chainPath, keyPath, pubPath
}

func TestKeygenNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key.pem")
	pub := filepath.Join(dir, "pub.pem")

	_, err := execute(t, "keygen", "--out", key, "--pub", pub)
	require.NoError(t, err)
	before, err := os.ReadFile(key)
	require.NoError(t, err)

	_, err = execute(t, "keygen", "--out", key, "--pub", pub)
	require.Error(t, err)
	after, err := os.ReadFile(key)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerifyCommand(t *testing.T) {
	chainPath, _, pubPath := writeChain(t, t.TempDir())

	out, err := execute(t, "verify", "--chain", chainPath, "--pubkey", pubPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 2 blocks")

	chain, err := snapshot.ReadChain(chainPath)
	require.NoError(t, err)
	chain[1].Data = `{"protocol":"MQTT"}`
	raw, err := json.MarshalIndent(chain, "", "    ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(chainPath, raw, 0o644))

	_, err = execute(t, "verify", "--chain", chainPath, "--pubkey", pubPath)
	require.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("controller:\n  mode: monitor\n"), 0o644))

	out, err := execute(t, "validate", "--config", good)
	require.NoError(t, err)
	assert.Contains(t, out, "mode=monitor")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("controller:\n  mode: audit\n"), 0o644))
	_, err = execute(t, "validate", "--config", bad)
	require.Error(t, err, "audit mode without a signing key")
}

func TestStatsCommand(t *testing.T) {
	chainPath, _, _ := writeChain(t, t.TempDir())
	chainJSON, err := os.ReadFile(chainPath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			w.Write([]byte("# HELP aegis_frames_total x\naegis_frames_total 12345\naegis_journal_size_bytes 2048\n"))
		case "/api/chain":
			w.Write(chainJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, "stats", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "frames=12,345")
	assert.Contains(t, out, "blocks=2")
	assert.Contains(t, out, "journal=2.0 kB")
	assert.Contains(t, out, "tail block 1")
}
