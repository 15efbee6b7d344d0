package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GenesisData is the literal payload of block 0.
const GenesisData = "Genesis Block"

// GenesisPreviousHash is the sentinel predecessor hash of block 0.
const GenesisPreviousHash = "0"

// GenesisSignature is a placeholder; block 0 is trusted by convention.
const GenesisSignature = "GENESIS_SIGNATURE"

// TimestampLayout is the wall-clock format used in blocks and records.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Record is the audit entry for one accepted application-layer frame. Field
// order is the canonical serialization order.
type Record struct {
	Protocol        Label  `json:"protocol"`
	SrcIP           string `json:"src_ip"`
	DstIP           string `json:"dst_ip"`
	DstPort         uint16 `json:"dst_port"`
	Timestamp       string `json:"timestamp"`
	LatencyUS       int64  `json:"latency_us"`
	InPort          uint32 `json:"in_port"`
	PacketSizeBytes int    `json:"packet_size_bytes,omitempty"`
}

// Block is one link of the audit chain. Data holds the exact string that is
// hashed: the canonical JSON of a Record, or GenesisData for block 0.
type Block struct {
	Index        uint64
	Timestamp    string
	Data         string
	PreviousHash string
	Signature    string
	Hash         string
}

type persistedBlock struct {
	Index        uint64          `json:"index"`
	Timestamp    string          `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	PreviousHash string          `json:"previous_hash"`
	Signature    string          `json:"signature"`
	Hash         string          `json:"hash"`
}

// MarshalJSON renders data as an object for record blocks and as a plain
// string for the genesis block.
func (b Block) MarshalJSON() ([]byte, error) {
	var data json.RawMessage
	if b.Index == 0 {
		raw, err := json.Marshal(b.Data)
		if err != nil {
			return nil, err
		}
		data = raw
	} else {
		if !json.Valid([]byte(b.Data)) {
			return nil, fmt.Errorf("block %d: data is not valid JSON", b.Index)
		}
		data = json.RawMessage(b.Data)
	}
	return json.Marshal(persistedBlock{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Data:         data,
		PreviousHash: b.PreviousHash,
		Signature:    b.Signature,
		Hash:         b.Hash,
	})
}

// UnmarshalJSON accepts both compact and pretty-printed encodings and
// restores Data to the compact form it was hashed in.
func (b *Block) UnmarshalJSON(raw []byte) error {
	var p persistedBlock
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(p.Data)
	switch {
	case len(trimmed) == 0:
		b.Data = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		b.Data = s
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return err
		}
		b.Data = buf.String()
	}
	b.Index = p.Index
	b.Timestamp = p.Timestamp
	b.PreviousHash = p.PreviousHash
	b.Signature = p.Signature
	b.Hash = p.Hash
	return nil
}

// TrafficEntry is one line of the rolling live-traffic log kept by the
// monitor variant.
type TrafficEntry struct {
	DstIP           string `json:"dst_ip"`
	DstPort         uint16 `json:"dst_port"`
	LatencyUS       int64  `json:"latency_us"`
	PacketSizeBytes int    `json:"packet_size_bytes"`
	Protocol        Label  `json:"protocol"`
	SrcIP           string `json:"src_ip"`
	Timestamp       string `json:"timestamp"`
}
