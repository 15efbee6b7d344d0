package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// PostgresSink mirrors ledger blocks into a SQL table keyed by block index.
// Re-sending a block is a no-op, so replays after a crash are safe.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the mirror table if it does not exist.
func (p *PostgresSink) EnsureSchema() error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	index BIGINT PRIMARY KEY,
	ts TEXT NOT NULL,
	data TEXT NOT NULL,
	previous_hash TEXT NOT NULL,
	signature TEXT NOT NULL,
	hash TEXT NOT NULL
)`, p.tableName)
	if _, err := p.db.Exec(stmt); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "postgres sink: create table %s", p.tableName)
	}
	return nil
}

func (p *PostgresSink) WriteBatch(blocks []*domain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (index, ts, data, previous_hash, signature, hash) VALUES ")

	args := make([]any, 0, len(blocks)*6)
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))
		args = append(args,
			int64(blk.Index),
			blk.Timestamp,
			blk.Data,
			blk.PreviousHash,
			blk.Signature,
			blk.Hash,
		)
	}

	b.WriteString(" ON CONFLICT (index) DO NOTHING")

	if _, err := p.db.Exec(b.String(), args...); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "postgres sink: insert blocks")
	}
	return nil
}

var _ ports.BlockSink = (*PostgresSink)(nil)
