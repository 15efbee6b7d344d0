package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		proto domain.Transport
		port  uint16
		want  domain.Label
		ok    bool
	}{
		{domain.TransportTCP, 1883, domain.LabelMQTT, true},
		{domain.TransportTCP, 5672, domain.LabelAMQP, true},
		{domain.TransportTCP, 80, domain.LabelHTTP, true},
		{domain.TransportUDP, 5683, domain.LabelCoAP, true},
		{domain.TransportTCP, 443, "TCP/443", true},
		{domain.TransportUDP, 1883, "UDP/1883", true},
		{domain.TransportUDP, 80, "UDP/80", true},
		{domain.TransportTCP, 5683, "TCP/5683", true},
		{domain.TransportNone, 80, "", false},
	}
	for _, tc := range cases {
		got, ok := Classify(tc.proto, tc.port)
		assert.Equal(t, tc.ok, ok, "%s/%d", tc.proto, tc.port)
		assert.Equal(t, tc.want, got, "%s/%d", tc.proto, tc.port)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first, _ := Classify(domain.TransportUDP, 4242)
	for i := 0; i < 100; i++ {
		got, ok := Classify(domain.TransportUDP, 4242)
		assert.True(t, ok)
		assert.Equal(t, first, got)
	}
}
