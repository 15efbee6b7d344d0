package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
)

func testBlock(index uint64) *domain.Block {
	data := `{"protocol":"CoAP","src_ip":"10.0.0.1","dst_ip":"10.0.0.2","dst_port":5683,"timestamp":"t","latency_us":1,"in_port":1,"packet_size_bytes":300}`
	if index == 0 {
		data = domain.GenesisData
	}
	return &domain.Block{
		Index:        index,
		Timestamp:    "2024-05-01 10:00:00.000000",
		Data:         data,
		PreviousHash: "prev",
		Signature:    "sig",
		Hash:         "hash",
	}
}

func TestFileJournalAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir, true)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	for i := uint64(0); i < 3; i++ {
		if err := j.Append(testBlock(i)); err != nil {
			t.Fatalf("append block %d: %v", i, err)
		}
	}

	var iterated []uint64
	if err := j.Iterate(1, func(b *domain.Block) error {
		iterated = append(iterated, b.Index)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(iterated) != 2 || iterated[0] != 1 || iterated[1] != 2 {
		t.Fatalf("expected blocks [1 2], got %v", iterated)
	}

	var genesis *domain.Block
	_ = j.Iterate(0, func(b *domain.Block) error {
		if genesis == nil {
			genesis = b
		}
		return nil
	})
	if genesis == nil || genesis.Data != domain.GenesisData {
		t.Fatalf("genesis data not restored: %+v", genesis)
	}

	if err := j.Commit(2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	// Reopen and ensure the mirror mark was persisted.
	j2, err := NewFileJournal(dir, true)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}

	stats := j2.Stats()
	if stats.Blocks != 3 {
		t.Fatalf("expected 3 blocks, got %d", stats.Blocks)
	}
	if stats.Mirrored != 2 {
		t.Fatalf("expected mirrored mark 2, got %d", stats.Mirrored)
	}
	if stats.SizeBytes == 0 {
		t.Fatalf("expected non-zero size")
	}

	// A torn tail from a crash mid-append is truncated on open.
	if err := j2.Close(); err != nil {
		t.Fatalf("close journal2: %v", err)
	}
	path := filepath.Join(dir, "ledger.journal")
	if err := appendGarbage(path); err != nil {
		t.Fatalf("append garbage: %v", err)
	}

	j3, err := NewFileJournal(dir, false)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer j3.Close()
	if got := j3.Stats(); got.Blocks != 3 || got.SizeBytes != stats.SizeBytes {
		t.Fatalf("expected torn tail dropped, got %+v", got)
	}
	if err := j3.Append(testBlock(3)); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}

func TestFileJournalRejectsOutOfOrderAppend(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), false)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	defer j.Close()

	err = j.Append(testBlock(1))
	if errors.GetKind(err) != errors.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if j.Stats().Blocks != 0 {
		t.Fatalf("rejected append must not count")
	}
}

func TestFileJournalCommitIsMonotonic(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), false)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	defer j.Close()

	for i := uint64(0); i < 4; i++ {
		if err := j.Append(testBlock(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := j.Commit(3); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.Commit(1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.Commit(99); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := j.Stats().Mirrored; got != 4 {
		t.Fatalf("expected mirrored clamped to 4, got %d", got)
	}
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0xFF})
	return err
}
