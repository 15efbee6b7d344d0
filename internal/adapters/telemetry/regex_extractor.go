package telemetry

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/ghalamif/AegisSDN/internal/ports"
)

var (
	tempPattern = regexp.MustCompile(`temp[:=]\s*(\d+)`)
	humPattern  = regexp.MustCompile(`hum[:=]\s*(\d+)`)
)

// RegexExtractor scans raw frame bytes for "temp:<n>" and "hum:<n>" style
// readings. It does not parse the application envelope.
type RegexExtractor struct{}

func NewRegexExtractor() *RegexExtractor { return &RegexExtractor{} }

func (RegexExtractor) Name() string { return "regex" }

func (RegexExtractor) Extract(payload []byte) (ports.Telemetry, bool) {
	temp, ok := firstInt(tempPattern, payload)
	if !ok {
		return ports.Telemetry{}, false
	}
	hum, ok := firstInt(humPattern, payload)
	if !ok {
		return ports.Telemetry{}, false
	}
	return ports.Telemetry{Temperature: temp, Humidity: hum}, true
}

func firstInt(re *regexp.Regexp, payload []byte) (int64, bool) {
	m := re.FindSubmatch(payload)
	if m == nil {
		return 0, false
	}
	// Readings too large for int64 saturate at math.MaxInt64.
	v, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

var _ ports.TelemetryExtractor = (*RegexExtractor)(nil)
