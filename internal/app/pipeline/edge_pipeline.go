package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// EdgePipeline pulls events from a source and fans them out to a pool of
// workers. Events are sharded by switch so each switch sees its frames in
// arrival order while different switches proceed in parallel.
type EdgePipeline struct {
	src    ports.EventSource
	disp   *Dispatcher
	pol    ports.Policy
	obs    ports.Observability
	in     chan *domain.Event
	shards []chan *domain.Event
	wg     sync.WaitGroup
	once   sync.Once
}

func RunEdgePipeline(src ports.EventSource, disp *Dispatcher, pol ports.Policy, obs ports.Observability) (*EdgePipeline, error) {
	workers := pol.Workers
	if workers <= 0 {
		workers = 1
	}
	depth := pol.MaxQueueLen
	if depth <= 0 {
		depth = 1
	}

	p := &EdgePipeline{
		src:    src,
		disp:   disp,
		pol:    pol,
		obs:    obs,
		in:     make(chan *domain.Event, depth),
		shards: make([]chan *domain.Event, workers),
	}
	for i := range p.shards {
		p.shards[i] = make(chan *domain.Event, depth/workers+1)
		p.wg.Add(1)
		go p.work(p.shards[i])
	}
	p.wg.Add(1)
	go p.route()

	if err := src.Start(p.in); err != nil {
		p.closeInput()
		p.wg.Wait()
		return nil, err
	}
	return p, nil
}

func (p *EdgePipeline) route() {
	defer p.wg.Done()
	defer func() {
		for _, s := range p.shards {
			close(s)
		}
	}()
	for ev := range p.in {
		shard := p.shards[ev.SwitchID%uint64(len(p.shards))]
		if !enqueueWithPolicy(shard, ev, p.pol, p.obs) {
			p.obs.IncCounter(ports.MetricQueueDropped, 1)
		}
	}
}

func (p *EdgePipeline) work(events <-chan *domain.Event) {
	defer p.wg.Done()
	for ev := range events {
		p.disp.Dispatch(ev)
	}
}

// Stop halts the source and waits until every accepted event is handled.
func (p *EdgePipeline) Stop() error {
	err := p.src.Stop()
	p.closeInput()
	p.wg.Wait()
	return err
}

func (p *EdgePipeline) closeInput() {
	p.once.Do(func() { close(p.in) })
}

func enqueueWithPolicy(shard chan<- *domain.Event, ev *domain.Event, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		select {
		case shard <- ev:
			return true
		default:
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("worker queue exceeded capacity %d", cap(shard)),
				ports.Field{Key: "event_id", Value: ev.ID})
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
