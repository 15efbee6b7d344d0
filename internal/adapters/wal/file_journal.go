package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/facebookgo/atomicfile"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

const recordHeaderLen = 12

// FileJournal is an append-only block log. Each entry is
// [8 bytes block index][4 bytes length][length bytes JSON]. The mirror
// commit mark lives in a sidecar meta file.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	fsync     bool
	blocks    uint64
	mirrored  uint64
	sizeBytes int64
}

func NewFileJournal(dir string, fsync bool) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "journal: create dir %s", dir)
	}
	path := filepath.Join(dir, "ledger.journal")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "journal: open %s", path)
	}

	j := &FileJournal{
		path:     path,
		metaPath: filepath.Join(dir, "ledger.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
		fsync:    fsync,
	}
	if err := j.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	if err := j.scanExisting(); err != nil {
		return err
	}
	if err := j.loadMirrored(); err != nil {
		return err
	}
	if j.mirrored > j.blocks {
		j.mirrored = j.blocks
	}
	_, err := j.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting counts complete entries and truncates a torn tail left by a
// crash mid-append.
func (j *FileJournal) scanExisting() error {
	stat, err := j.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		count  uint64
	)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		index := binary.BigEndian.Uint64(hdr[0:8])
		length := binary.BigEndian.Uint32(hdr[8:12])
		if index != count {
			return errors.Errorf(errors.KindConflict, "journal: entry %d carries index %d", count, index)
		}
		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan body: %w", err)
		}
		offset += recordHeaderLen + int64(length)
		count++
	}

	if offset < stat.Size() {
		if err := j.file.Truncate(offset); err != nil {
			return err
		}
	}
	j.sizeBytes = offset
	j.blocks = count
	return nil
}

func (j *FileJournal) loadMirrored() error {
	data, err := os.ReadFile(j.metaPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("journal meta parse: %w", err)
	}
	j.mirrored = u
	return nil
}

// Append writes b durably. Blocks must arrive in index order. A failed write
// is rolled back so the file never holds a partial entry.
func (j *FileJournal) Append(b *domain.Block) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if b.Index != j.blocks {
		return errors.Errorf(errors.KindConflict, "journal: append index %d, expected %d", b.Index, j.blocks)
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "journal: encode block")
	}

	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], b.Index)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(payload)))

	if err := j.writeLocked(hdr[:], payload); err != nil {
		j.rollbackLocked()
		return errors.Wrap(err, errors.KindUnavailable, "journal: append")
	}

	j.blocks++
	j.sizeBytes += int64(len(hdr) + len(payload))
	return nil
}

func (j *FileJournal) writeLocked(hdr, payload []byte) error {
	if _, err := j.writer.Write(hdr); err != nil {
		return err
	}
	if _, err := j.writer.Write(payload); err != nil {
		return err
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if j.fsync {
		return j.file.Sync()
	}
	return nil
}

func (j *FileJournal) rollbackLocked() {
	j.writer.Reset(j.file)
	_ = j.file.Truncate(j.sizeBytes)
}

// Iterate calls fn for every block with index >= from, in order.
func (j *FileJournal) Iterate(from uint64, fn func(b *domain.Block) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, j.sizeBytes))
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal iterate header: %w", err)
		}
		index := binary.BigEndian.Uint64(hdr[0:8])
		l := binary.BigEndian.Uint32(hdr[8:12])

		body := make([]byte, l)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("corrupt journal at %d: %w", index, err)
		}
		if index < from {
			continue
		}

		var b domain.Block
		if err := json.Unmarshal(body, &b); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", index, err)
		}
		if err := fn(&b); err != nil {
			return err
		}
	}
}

// Commit records that every block with index < next was mirrored.
func (j *FileJournal) Commit(next uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if next > j.blocks {
		next = j.blocks
	}
	if next <= j.mirrored {
		return nil
	}
	j.mirrored = next
	return j.persistMetaLocked()
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		Blocks:    j.blocks,
		Mirrored:  j.mirrored,
		SizeBytes: j.sizeBytes,
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	return j.file.Close()
}

func (j *FileJournal) persistMetaLocked() error {
	f, err := atomicfile.New(j.metaPath, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", j.mirrored); err != nil {
		f.Abort()
		return err
	}
	return f.Close()
}

var _ ports.BlockJournal = (*FileJournal)(nil)
