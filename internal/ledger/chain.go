// Package ledger keeps the signed, hash-chained audit log of accepted
// application traffic.
package ledger

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
)

// ComputeHash is the SHA-256 hex digest of the concatenated block fields.
func ComputeHash(index uint64, timestamp, data, previousHash, signature string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s%s%s%s", index, timestamp, data, previousHash, signature)))
	return hex.EncodeToString(sum[:])
}

func hashOf(b *domain.Block) string {
	return ComputeHash(b.Index, b.Timestamp, b.Data, b.PreviousHash, b.Signature)
}

// NewGenesis builds block 0. Its signature is a placeholder and is never
// checked.
func NewGenesis(timestamp string) *domain.Block {
	b := &domain.Block{
		Index:        0,
		Timestamp:    timestamp,
		Data:         domain.GenesisData,
		PreviousHash: domain.GenesisPreviousHash,
		Signature:    domain.GenesisSignature,
	}
	b.Hash = hashOf(b)
	return b
}

// SignedPayload recovers the bytes a block's signature covers: the record
// as it was serialized before packet_size_bytes was embedded. data must be
// the exact encoding the ledger produced; unknown keys, case variants and
// reordered fields are rejected.
func SignedPayload(data string) ([]byte, error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	return strippedPayload(rec)
}

func decodeRecord(data string) (domain.Record, error) {
	var rec domain.Record
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return domain.Record{}, err
	}
	canonical, err := json.Marshal(rec)
	if err != nil {
		return domain.Record{}, err
	}
	if string(canonical) != data {
		return domain.Record{}, fmt.Errorf("record is not in canonical form")
	}
	return rec, nil
}

func strippedPayload(rec domain.Record) ([]byte, error) {
	rec.PacketSizeBytes = 0
	return json.Marshal(rec)
}

// tentativeSize is the encoded length of the signed block before the size
// was embedded into its record.
func tentativeSize(index uint64, timestamp string, payload []byte, previousHash, signature string) (int, error) {
	b := &domain.Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         string(payload),
		PreviousHash: previousHash,
		Signature:    signature,
	}
	b.Hash = hashOf(b)
	encoded, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

// VerifyChain returns the first integrity violation found in chain.
func VerifyChain(chain []*domain.Block, pub *ecdsa.PublicKey) error {
	if len(chain) == 0 {
		return errors.New(errors.KindConflict, "ledger: empty chain")
	}
	for i, b := range chain {
		if b == nil {
			return errors.Errorf(errors.KindConflict, "ledger: block %d missing", i)
		}
		if b.Index != uint64(i) {
			return violation(i, "index %d out of sequence", b.Index)
		}
		if got := hashOf(b); got != b.Hash {
			return violation(i, "hash mismatch")
		}
		if i == 0 {
			if b.PreviousHash != domain.GenesisPreviousHash {
				return violation(i, "genesis previous hash %q", b.PreviousHash)
			}
			continue
		}
		if b.PreviousHash != chain[i-1].Hash {
			return violation(i, "broken link to block %d", i-1)
		}
		rec, err := decodeRecord(b.Data)
		if err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindConflict, "ledger: undecodable block data"), "index", i)
		}
		payload, err := strippedPayload(rec)
		if err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindConflict, "ledger: encode signed payload"), "index", i)
		}
		if !VerifySignature(pub, payload, b.Signature) {
			return violation(i, "invalid signature")
		}
		size, err := tentativeSize(b.Index, b.Timestamp, payload, b.PreviousHash, b.Signature)
		if err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindConflict, "ledger: encode tentative block"), "index", i)
		}
		if size != rec.PacketSizeBytes {
			return violation(i, "packet_size_bytes %d, signed block encodes to %d", rec.PacketSizeBytes, size)
		}
	}
	return nil
}

// Verify reports whether chain is intact and fully signed by pub.
func Verify(chain []*domain.Block, pub *ecdsa.PublicKey) bool {
	return VerifyChain(chain, pub) == nil
}

func violation(index int, format string, args ...any) error {
	err := errors.Errorf(errors.KindConflict, "ledger: block %d: %s", index, fmt.Sprintf(format, args...))
	return errors.Attr(err, "index", index)
}
