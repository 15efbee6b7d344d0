// Package packet decodes raw Ethernet frames into the header fields the
// decision pipeline needs.
package packet

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

var decodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

// Decode parses data as an Ethernet frame. ok is false when no Ethernet
// header could be decoded; deeper headers that fail to decode are left
// empty.
func Decode(data []byte) (*domain.Frame, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, decodeOptions)

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, false
	}
	eth := ethLayer.(*layers.Ethernet)

	f := &domain.Frame{
		SrcMAC:    eth.SrcMAC,
		DstMAC:    eth.DstMAC,
		EtherType: uint16(eth.EthernetType),
		Length:    len(data),
	}

	if l := pkt.Layer(layers.LayerTypeARP); l != nil {
		arp := l.(*layers.ARP)
		f.ARP = &domain.ARPHeader{
			SenderIP:  net.IP(arp.SourceProtAddress),
			SenderMAC: net.HardwareAddr(arp.SourceHwAddress),
		}
		return f, true
	}

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return f, true
	}
	ip := ipLayer.(*layers.IPv4)
	f.IPv4 = &domain.IPv4Header{
		SrcIP:    ip.SrcIP,
		DstIP:    ip.DstIP,
		Protocol: uint8(ip.Protocol),
	}

	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		f.Transport = domain.TransportTCP
		f.DstPort = uint16(l.(*layers.TCP).DstPort)
	} else if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		f.Transport = domain.TransportUDP
		f.DstPort = uint16(l.(*layers.UDP).DstPort)
	}
	return f, true
}
