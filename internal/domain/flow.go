package domain

import (
	"net"
	"time"
)

// Label is the application-protocol name assigned by the traffic classifier.
type Label string

const (
	LabelMQTT Label = "MQTT"
	LabelAMQP Label = "AMQP"
	LabelHTTP Label = "HTTP"
	LabelCoAP Label = "CoAP"
)

// Transport identifies the transport header found in a frame.
type Transport uint8

const (
	TransportNone Transport = iota
	TransportTCP
	TransportUDP
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "TCP"
	case TransportUDP:
		return "UDP"
	default:
		return "none"
	}
}

// Reserved switch port numbers (OpenFlow 1.3 numbering).
const (
	PortFlood      uint32 = 0xfffffffb
	PortController uint32 = 0xfffffffd
)

// Well-known ethertypes and IP protocol numbers used in rule matches.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	IPProtoICMP   uint8  = 1
)

// Frame is the decoded view of an inbound frame. ARP, IPv4 and transport
// sections are nil/zero when the corresponding header is absent.
type Frame struct {
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	EtherType uint16
	ARP       *ARPHeader
	IPv4      *IPv4Header
	Transport Transport
	DstPort   uint16
	Length    int
}

// ARPHeader carries the sender binding advertised by an ARP frame.
type ARPHeader struct {
	SenderIP  net.IP
	SenderMAC net.HardwareAddr
}

// IPv4Header carries the addressing fields the pipeline needs.
type IPv4Header struct {
	SrcIP    net.IP
	DstIP    net.IP
	Protocol uint8
}

// FlowKey identifies an application flow for replay detection.
type FlowKey struct {
	SrcMAC  string
	SrcIP   string
	Label   Label
	DstPort uint16
}

// Match lists the header fields a flow-table rule matches on. Zero values
// mean "wildcard".
type Match struct {
	InPort  uint32 `json:"in_port,omitempty"`
	EthSrc  string `json:"eth_src,omitempty"`
	EthType uint16 `json:"eth_type,omitempty"`
	ARPSPA  string `json:"arp_spa,omitempty"`
	IPProto uint8  `json:"ip_proto,omitempty"`
}

// Action outputs a frame to a port. A rule with no actions drops.
type Action struct {
	OutPort uint32 `json:"out_port"`
	MaxLen  uint16 `json:"max_len,omitempty"`
}

// FlowRule is a flow-table modification sent to a switch.
type FlowRule struct {
	SwitchID    uint64        `json:"switch_id"`
	Priority    uint16        `json:"priority"`
	Match       Match         `json:"match"`
	Actions     []Action      `json:"actions"`
	IdleTimeout time.Duration `json:"idle_timeout"`
	HardTimeout time.Duration `json:"hard_timeout"`
}

// PacketOut asks a switch to emit a frame it previously reported.
type PacketOut struct {
	SwitchID uint64   `json:"switch_id"`
	BufferID uint32   `json:"buffer_id"`
	InPort   uint32   `json:"in_port"`
	Actions  []Action `json:"actions"`
	Data     []byte   `json:"data,omitempty"`
}
