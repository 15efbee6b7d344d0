// Package pcapreplay feeds frames from a capture file into the pipeline as if
// a single switch had reported them.
package pcapreplay

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

type Config struct {
	Path     string `yaml:"path"`
	SwitchID uint64 `yaml:"switch_id"`
	InPort   uint32 `yaml:"in_port"`
	// Pace replays with the capture's inter-frame gaps instead of as fast as possible.
	Pace bool `yaml:"pace"`
}

func (c *Config) ApplyDefaults() {
	if c.SwitchID == 0 {
		c.SwitchID = 1
	}
	if c.InPort == 0 {
		c.InPort = 1
	}
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New(errors.KindValidation, "pcap path is required")
	}
	return nil
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Source replays a pcap or pcapng file. It announces the switch once, then
// emits every captured frame unbuffered on the configured ingress port.
type Source struct {
	cfg  Config
	obs  ports.Observability
	file *os.File
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	started bool
	frames  uint64
	err     error
}

func NewSource(cfg Config, obs ports.Observability) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		cfg:  cfg,
		obs:  obs,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

func (s *Source) Start(out chan<- *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New(errors.KindConflict, "pcap source already started")
	}

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "open capture %s", s.cfg.Path)
	}
	reader, err := openReader(f)
	if err != nil {
		f.Close()
		return errors.Attr(errors.Wrap(err, errors.KindValidation, "read capture header"), "path", s.cfg.Path)
	}
	s.file = f
	s.started = true

	go s.run(reader, out)
	return nil
}

func openReader(f *os.File) (packetReader, error) {
	if r, err := pcapgo.NewReader(bufio.NewReader(f)); err == nil {
		return r, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return pcapgo.NewNgReader(bufio.NewReader(f), pcapgo.DefaultNgReaderOptions)
}

func (s *Source) run(r packetReader, out chan<- *domain.Event) {
	defer close(s.done)
	defer s.file.Close()

	if !s.emit(out, domain.NewSwitchConnectedEvent(s.cfg.SwitchID)) {
		return
	}

	var last time.Time
	for {
		data, ci, err := r.ReadPacketData()
		if err != nil {
			if err != io.EOF {
				s.setErr(err)
				if s.obs != nil {
					s.obs.LogError("pcap replay aborted", err, ports.Field{Key: "path", Value: s.cfg.Path})
				}
			}
			return
		}

		if s.cfg.Pace && !last.IsZero() {
			if gap := ci.Timestamp.Sub(last); gap > 0 {
				select {
				case <-time.After(gap):
				case <-s.stop:
					return
				}
			}
		}
		last = ci.Timestamp

		frame := make([]byte, len(data))
		copy(frame, data)
		if !s.emit(out, domain.NewFrameEvent(s.cfg.SwitchID, s.cfg.InPort, domain.NoBuffer, frame)) {
			return
		}
		s.mu.Lock()
		s.frames++
		s.mu.Unlock()
	}
}

func (s *Source) emit(out chan<- *domain.Event, ev *domain.Event) bool {
	select {
	case out <- ev:
		return true
	case <-s.stop:
		return false
	}
}

func (s *Source) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Source) Stop() error {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
	return nil
}

// Done is closed once the capture is exhausted or the source is stopped.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Frames reports how many frames were emitted so far.
func (s *Source) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Err returns the read error that ended the replay early, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

var _ ports.EventSource = (*Source)(nil)
