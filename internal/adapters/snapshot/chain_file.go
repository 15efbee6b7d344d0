// Package snapshot writes the JSON files polled by the dashboards. Every
// write replaces the file atomically so readers never see a partial document.
package snapshot

import (
	"encoding/json"
	"os"

	"github.com/facebookgo/atomicfile"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// ChainFile writes the ledger as a pretty-printed JSON array.
type ChainFile struct {
	path string
}

func NewChainFile(path string) *ChainFile {
	return &ChainFile{path: path}
}

func (c *ChainFile) Path() string { return c.path }

func (c *ChainFile) WriteChain(blocks []*domain.Block) error {
	if blocks == nil {
		blocks = []*domain.Block{}
	}
	return writeJSON(c.path, blocks)
}

// ReadChain loads a chain snapshot. Callers that must tolerate a missing or
// corrupt file treat any error as an empty chain.
func ReadChain(path string) ([]*domain.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "read chain %s", path)
	}
	var blocks []*domain.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "decode chain %s", path)
	}
	return blocks, nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "encode snapshot")
	}
	f, err := atomicfile.New(path, 0o644)
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "create %s", path)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		f.Abort()
		return errors.Wrapf(err, errors.KindUnavailable, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "commit %s", path)
	}
	return nil
}

var _ ports.ChainSnapshot = (*ChainFile)(nil)
