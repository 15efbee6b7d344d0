package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/testutil"
)

func TestDecodeTCP(t *testing.T) {
	data := testutil.TCPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2", 1883, []byte("temp:40 hum:20"))

	f, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, testutil.MAC1, f.SrcMAC.String())
	assert.Equal(t, testutil.MAC2, f.DstMAC.String())
	assert.Equal(t, domain.EtherTypeIPv4, f.EtherType)
	require.NotNil(t, f.IPv4)
	assert.Equal(t, "10.0.0.1", f.IPv4.SrcIP.String())
	assert.Equal(t, "10.0.0.2", f.IPv4.DstIP.String())
	assert.Equal(t, domain.TransportTCP, f.Transport)
	assert.Equal(t, uint16(1883), f.DstPort)
	assert.Equal(t, len(data), f.Length)
	assert.Nil(t, f.ARP)
}

func TestDecodeUDP(t *testing.T) {
	data := testutil.UDPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2", 5683, []byte("coap"))

	f, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, domain.TransportUDP, f.Transport)
	assert.Equal(t, uint16(5683), f.DstPort)
}

func TestDecodeARP(t *testing.T) {
	data := testutil.ARPFrame(t, testutil.MAC1, "10.0.0.1", "10.0.0.2")

	f, ok := Decode(data)
	require.True(t, ok)
	require.NotNil(t, f.ARP)
	assert.Equal(t, domain.EtherTypeARP, f.EtherType)
	assert.Equal(t, "10.0.0.1", f.ARP.SenderIP.String())
	assert.Equal(t, testutil.MAC1, f.ARP.SenderMAC.String())
	assert.Nil(t, f.IPv4)
	assert.Equal(t, domain.TransportNone, f.Transport)
}

func TestDecodeICMPHasNoTransport(t *testing.T) {
	data := testutil.ICMPFrame(t, testutil.MAC1, testutil.MAC2, "10.0.0.1", "10.0.0.2")

	f, ok := Decode(data)
	require.True(t, ok)
	require.NotNil(t, f.IPv4)
	assert.Equal(t, domain.IPProtoICMP, f.IPv4.Protocol)
	assert.Equal(t, domain.TransportNone, f.Transport)
}

func TestDecodeGarbage(t *testing.T) {
	_, ok := Decode([]byte{0x01, 0x02, 0x03})
	assert.False(t, ok)

	_, ok = Decode(nil)
	assert.False(t, ok)
}
