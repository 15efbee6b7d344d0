// Package classifier maps transport tuples to application-protocol labels.
package classifier

import (
	"fmt"

	"github.com/ghalamif/AegisSDN/internal/domain"
)

type portKey struct {
	proto domain.Transport
	port  uint16
}

var wellKnown = map[portKey]domain.Label{
	{domain.TransportTCP, 1883}: domain.LabelMQTT,
	{domain.TransportTCP, 5672}: domain.LabelAMQP,
	{domain.TransportTCP, 80}:   domain.LabelHTTP,
	{domain.TransportUDP, 5683}: domain.LabelCoAP,
}

// Classify labels a flow by transport and destination port. Frames without a
// TCP or UDP header are not classified.
func Classify(proto domain.Transport, dstPort uint16) (domain.Label, bool) {
	if label, ok := wellKnown[portKey{proto, dstPort}]; ok {
		return label, true
	}
	switch proto {
	case domain.TransportTCP, domain.TransportUDP:
		return domain.Label(fmt.Sprintf("%s/%d", proto, dstPort)), true
	default:
		return "", false
	}
}
