package pipeline

import (
	"time"

	"github.com/ghalamif/AegisSDN/internal/anomaly"
	"github.com/ghalamif/AegisSDN/internal/classifier"
	"github.com/ghalamif/AegisSDN/internal/contract"
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/flowstate"
	"github.com/ghalamif/AegisSDN/internal/packet"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// AuditLedger appends accepted flows to the signed chain and returns the
// serialized block size.
type AuditLedger interface {
	Append(rec domain.Record) (int, error)
}

// Mode selects how much of the decision pipeline runs.
type Mode uint8

const (
	// ModeAudit runs detection, the admission contract and the ledger.
	ModeAudit Mode = iota
	// ModeMonitor runs the learning switch and records a traffic log only.
	ModeMonitor
)

const (
	PriorityBlock     uint16 = 100
	PriorityICMPFlood uint16 = 10
	PriorityTableMiss uint16 = 0

	// MaxLenNoBuffer asks the switch to send whole frames to the controller.
	MaxLenNoBuffer uint16 = 0xffff
)

type Settings struct {
	Mode                 Mode
	RateBlockIdleTimeout time.Duration
	ARPBlockIdleTimeout  time.Duration
	BlockPriority        uint16
}

func DefaultSettings() Settings {
	return Settings{
		Mode:                 ModeAudit,
		RateBlockIdleTimeout: 60 * time.Second,
		ARPBlockIdleTimeout:  120 * time.Second,
		BlockPriority:        PriorityBlock,
	}
}

// Deps are the collaborators of a Controller. Ledger and Contract are
// required in audit mode, Traffic in monitor mode.
type Deps struct {
	Datapath ports.Datapath
	Obs      ports.Observability
	MACs     *flowstate.Table
	Rate     *anomaly.RateLimiter
	Bindings *anomaly.BindingGuard
	Replay   *anomaly.ReplayGuard
	Contract *contract.Engine
	Ledger   AuditLedger
	Traffic  ports.TrafficRecorder
	Now      func() time.Time
}

// Controller owns all per-switch state and runs the decision pipeline for
// each event. It is safe for concurrent use; every table carries its own lock
// and the ledger serializes appends.
type Controller struct {
	deps     Deps
	settings Settings
	now      func() time.Time
}

func NewController(deps Deps, settings Settings) (*Controller, error) {
	if deps.Datapath == nil || deps.Obs == nil {
		return nil, errors.New(errors.KindValidation, "controller: datapath and observability are required")
	}
	switch settings.Mode {
	case ModeAudit:
		if deps.Ledger == nil || deps.Contract == nil {
			return nil, errors.New(errors.KindValidation, "controller: audit mode needs a ledger and a contract engine")
		}
	case ModeMonitor:
		if deps.Traffic == nil {
			return nil, errors.New(errors.KindValidation, "controller: monitor mode needs a traffic recorder")
		}
	default:
		return nil, errors.Errorf(errors.KindValidation, "controller: unknown mode %d", settings.Mode)
	}
	if deps.MACs == nil {
		deps.MACs = flowstate.NewTable()
	}
	if deps.Rate == nil {
		deps.Rate = anomaly.NewRateLimiter(anomaly.DefaultRateLimit, anomaly.DefaultRateWindow)
	}
	if deps.Bindings == nil {
		deps.Bindings = anomaly.NewBindingGuard()
	}
	if deps.Replay == nil {
		deps.Replay = anomaly.NewReplayGuard()
	}
	if settings.BlockPriority == 0 {
		settings.BlockPriority = PriorityBlock
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{deps: deps, settings: settings, now: now}, nil
}

// HandleSwitchConnected installs the baseline rules on a new switch: ICMP is
// flooded by the switch itself and everything else is sent, unbuffered, to
// the controller.
func (c *Controller) HandleSwitchConnected(ev *domain.Event) {
	c.install(domain.FlowRule{
		SwitchID: ev.SwitchID,
		Priority: PriorityICMPFlood,
		Match:    domain.Match{EthType: domain.EtherTypeIPv4, IPProto: domain.IPProtoICMP},
		Actions:  []domain.Action{{OutPort: domain.PortFlood}},
	})
	c.install(domain.FlowRule{
		SwitchID: ev.SwitchID,
		Priority: PriorityTableMiss,
		Actions:  []domain.Action{{OutPort: domain.PortController, MaxLen: MaxLenNoBuffer}},
	})
	c.deps.Obs.LogInfo("switch connected", ports.Field{Key: "switch_id", Value: ev.SwitchID})
}

// HandleFrame runs one frame-arrival event to its terminal verdict.
func (c *Controller) HandleFrame(ev *domain.Event) domain.Verdict {
	v := c.decide(ev)
	c.deps.Obs.IncCounter(ports.MetricFrames, 1)
	c.deps.Obs.RecordVerdict(v)
	c.deps.Obs.Observe(ports.MetricPipelineLatency, c.now().Sub(ev.ReceivedAt).Seconds())
	return v
}

func (c *Controller) decide(ev *domain.Event) domain.Verdict {
	frame, ok := packet.Decode(ev.Data)
	if !ok {
		return domain.VerdictMalformed
	}
	if c.settings.Mode == ModeMonitor {
		return c.monitor(ev, frame)
	}

	src := frame.SrcMAC.String()
	if c.deps.Rate.Check(src) == anomaly.Block {
		c.deps.Obs.LogWarn("rate limit exceeded, blocking source",
			ports.Field{Key: "event_id", Value: ev.ID},
			ports.Field{Key: "switch_id", Value: ev.SwitchID},
			ports.Field{Key: "src_mac", Value: src},
			ports.Field{Key: "in_port", Value: ev.InPort},
		)
		c.install(domain.FlowRule{
			SwitchID:    ev.SwitchID,
			Priority:    c.settings.BlockPriority,
			Match:       domain.Match{InPort: ev.InPort, EthSrc: src},
			IdleTimeout: c.settings.RateBlockIdleTimeout,
		})
		return domain.VerdictRateBlocked
	}

	if frame.ARP != nil {
		ip := frame.ARP.SenderIP.String()
		mac := frame.ARP.SenderMAC.String()
		if c.deps.Bindings.Check(ev.SwitchID, ip, mac) == anomaly.Conflict {
			bound, _ := c.deps.Bindings.Binding(ev.SwitchID, ip)
			c.deps.Obs.LogWarn("arp spoofing detected",
				ports.Field{Key: "event_id", Value: ev.ID},
				ports.Field{Key: "switch_id", Value: ev.SwitchID},
				ports.Field{Key: "ip", Value: ip},
				ports.Field{Key: "bound_mac", Value: bound},
				ports.Field{Key: "claimed_mac", Value: mac},
			)
			c.install(domain.FlowRule{
				SwitchID:    ev.SwitchID,
				Priority:    c.settings.BlockPriority,
				Match:       domain.Match{EthType: domain.EtherTypeARP, ARPSPA: ip, EthSrc: mac},
				IdleTimeout: c.settings.ARPBlockIdleTimeout,
			})
			return domain.VerdictSpoofBlocked
		}
	}

	outPort := c.learnAndResolve(ev, frame)

	if frame.IPv4 != nil {
		if label, ok := classifier.Classify(frame.Transport, frame.DstPort); ok {
			if v, done := c.audit(ev, frame, label); done {
				return v
			}
		}
	}

	c.forward(ev, outPort)
	return domain.VerdictForwarded
}

// audit applies the replay guard, the admission contract and the ledger to a
// classified flow. done is true when the frame must not be forwarded.
func (c *Controller) audit(ev *domain.Event, frame *domain.Frame, label domain.Label) (domain.Verdict, bool) {
	key := domain.FlowKey{
		SrcMAC:  frame.SrcMAC.String(),
		SrcIP:   frame.IPv4.SrcIP.String(),
		Label:   label,
		DstPort: frame.DstPort,
	}
	if c.deps.Replay.Check(key, ev.InPort) == anomaly.Violation {
		c.deps.Obs.LogWarn("replayed flow on unexpected port",
			ports.Field{Key: "event_id", Value: ev.ID},
			ports.Field{Key: "flow", Value: key},
			ports.Field{Key: "in_port", Value: ev.InPort},
		)
		return domain.VerdictReplayDropped, true
	}

	if d, t := c.deps.Contract.Evaluate(label, ev.Data); d == contract.Drop {
		c.deps.Obs.LogWarn("contract rejected telemetry",
			ports.Field{Key: "event_id", Value: ev.ID},
			ports.Field{Key: "temp", Value: t.Temperature},
			ports.Field{Key: "hum", Value: t.Humidity},
		)
		return domain.VerdictContractDropped, true
	}

	now := c.now()
	rec := domain.Record{
		Protocol:  label,
		SrcIP:     frame.IPv4.SrcIP.String(),
		DstIP:     frame.IPv4.DstIP.String(),
		DstPort:   frame.DstPort,
		Timestamp: now.Format(domain.TimestampLayout),
		LatencyUS: now.Sub(ev.ReceivedAt).Microseconds(),
		InPort:    ev.InPort,
	}
	size, err := c.deps.Ledger.Append(rec)
	if err != nil {
		c.deps.Obs.LogCritical("ledger append failed, dropping frame", err,
			ports.Field{Key: "event_id", Value: ev.ID},
			ports.Field{Key: "retryable", Value: errors.IsRetryable(err)},
		)
		return domain.VerdictAuditFailed, true
	}
	c.deps.Obs.LogInfo("ledger block appended",
		ports.Field{Key: "event_id", Value: ev.ID},
		ports.Field{Key: "protocol", Value: label},
		ports.Field{Key: "block_size_bytes", Value: size},
	)
	return domain.VerdictForwarded, false
}

// monitor is the learning switch with a traffic log of classified, non-ICMP
// IPv4 flows.
func (c *Controller) monitor(ev *domain.Event, frame *domain.Frame) domain.Verdict {
	outPort := c.learnAndResolve(ev, frame)

	if frame.IPv4 != nil && frame.IPv4.Protocol != domain.IPProtoICMP {
		if label, ok := classifier.Classify(frame.Transport, frame.DstPort); ok {
			now := c.now()
			entry := domain.TrafficEntry{
				DstIP:           frame.IPv4.DstIP.String(),
				DstPort:         frame.DstPort,
				LatencyUS:       now.Sub(ev.ReceivedAt).Microseconds(),
				PacketSizeBytes: frame.Length,
				Protocol:        label,
				SrcIP:           frame.IPv4.SrcIP.String(),
				Timestamp:       now.Format(domain.TimestampLayout),
			}
			if err := c.deps.Traffic.Record(entry); err != nil {
				c.deps.Obs.LogError("traffic log write failed", err, ports.Field{Key: "event_id", Value: ev.ID})
			}
		}
	}

	c.forward(ev, outPort)
	return domain.VerdictForwarded
}

func (c *Controller) learnAndResolve(ev *domain.Event, frame *domain.Frame) uint32 {
	c.deps.MACs.Learn(ev.SwitchID, frame.SrcMAC.String(), ev.InPort)
	return c.deps.MACs.Resolve(ev.SwitchID, frame.DstMAC.String())
}

func (c *Controller) forward(ev *domain.Event, outPort uint32) {
	out := domain.PacketOut{
		SwitchID: ev.SwitchID,
		BufferID: ev.BufferID,
		InPort:   ev.InPort,
		Actions:  []domain.Action{{OutPort: outPort}},
	}
	if !ev.Buffered() {
		out.Data = ev.Data
	}
	if err := c.deps.Datapath.Forward(out); err != nil {
		c.commandFailed("forward", ev.SwitchID, err)
	}
}

func (c *Controller) install(rule domain.FlowRule) {
	if err := c.deps.Datapath.InstallRule(rule); err != nil {
		c.commandFailed("install_rule", rule.SwitchID, err)
	}
}

func (c *Controller) commandFailed(cmd string, switchID uint64, err error) {
	c.deps.Obs.IncCounter(ports.MetricSwitchCommandErrors, 1)
	c.deps.Obs.LogError("switch command failed", err,
		ports.Field{Key: "command", Value: cmd},
		ports.Field{Key: "switch_id", Value: switchID},
	)
}
