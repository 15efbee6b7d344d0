// Package testutil builds wire-format frames for pipeline and adapter tests.
package testutil

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Stable addresses used across tests.
const (
	MAC1 = "00:00:00:00:00:01"
	MAC2 = "00:00:00:00:00:02"
	MAC3 = "00:00:00:00:00:03"
)

func mustMAC(t testing.TB, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	if err != nil {
		t.Fatalf("parse mac %q: %v", s, err)
	}
	return mac
}

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		t.Fatalf("serialize frame: %v", err)
	}
	return buf.Bytes()
}

func ipv4(t testing.TB, src, dst string, proto layers.IPProtocol) *layers.IPv4 {
	t.Helper()
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: proto,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
}

// TCPFrame builds an Ethernet/IPv4/TCP frame with payload.
func TCPFrame(t testing.TB, srcMAC, dstMAC, srcIP, dstIP string, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: mustMAC(t, srcMAC), DstMAC: mustMAC(t, dstMAC), EthernetType: layers.EthernetTypeIPv4}
	ip := ipv4(t, srcIP, dstIP, layers.IPProtocolTCP)
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dstPort), PSH: true, ACK: true, Window: 1024}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("tcp checksum: %v", err)
	}
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

// UDPFrame builds an Ethernet/IPv4/UDP frame with payload.
func UDPFrame(t testing.TB, srcMAC, dstMAC, srcIP, dstIP string, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: mustMAC(t, srcMAC), DstMAC: mustMAC(t, dstMAC), EthernetType: layers.EthernetTypeIPv4}
	ip := ipv4(t, srcIP, dstIP, layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("udp checksum: %v", err)
	}
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

// ICMPFrame builds an Ethernet/IPv4/ICMP echo request.
func ICMPFrame(t testing.TB, srcMAC, dstMAC, srcIP, dstIP string) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: mustMAC(t, srcMAC), DstMAC: mustMAC(t, dstMAC), EthernetType: layers.EthernetTypeIPv4}
	ip := ipv4(t, srcIP, dstIP, layers.IPProtocolICMPv4)
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1}
	return serialize(t, eth, ip, icmp)
}

// ARPFrame builds a broadcast ARP request sent by senderMAC claiming senderIP.
func ARPFrame(t testing.TB, senderMAC, senderIP, targetIP string) []byte {
	t.Helper()
	src := mustMAC(t, senderMAC)
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   src,
		SourceProtAddress: net.ParseIP(senderIP).To4(),
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    net.ParseIP(targetIP).To4(),
	}
	return serialize(t, eth, arp)
}
