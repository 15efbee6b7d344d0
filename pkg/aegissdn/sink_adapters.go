package aegissdn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("aegissdn: channel sink closed")

// BlockBatchFunc receives mirrored blocks in chain order. Delivery is
// at-least-once: after a restart a block may be seen again.
type BlockBatchFunc func([]Block) error

// NewCallbackSink adapts a BlockBatchFunc into a BlockSink so callers can
// mirror the ledger into arbitrary systems without defining structs.
func NewCallbackSink(name string, fn BlockBatchFunc) BlockSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the
// read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (BlockSink, <-chan []Block, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Block, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   BlockBatchFunc
}

func (s *callbackSink) WriteBatch(blocks []*domain.Block) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(blocks) == 0 {
		return nil
	}
	return s.fn(copyBlocks(blocks))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Block
	closed chan struct{}
	mu     sync.RWMutex
	once   sync.Once
}

func (s *channelSink) WriteBatch(blocks []*domain.Block) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}
	if len(blocks) == 0 {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- copyBlocks(blocks):
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// copyBlocks detaches the batch from the ledger's own block values.
func copyBlocks(blocks []*domain.Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = *b
	}
	return out
}
