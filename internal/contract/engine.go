// Package contract holds the content-based admission rule applied to sensor
// telemetry ("smart contract").
package contract

import (
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// Decision is the admission outcome for one payload.
type Decision uint8

const (
	Allow Decision = iota
	Drop
)

func (d Decision) String() string {
	if d == Drop {
		return "drop"
	}
	return "allow"
}

// Thresholds parameterize the rule: drop when the temperature is below
// TempBelow and the humidity is outside [HumLow, HumHigh].
type Thresholds struct {
	TempBelow int64 `yaml:"temp_below"`
	HumLow    int64 `yaml:"hum_low"`
	HumHigh   int64 `yaml:"hum_high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{TempBelow: 50, HumLow: 30, HumHigh: 70}
}

// Engine evaluates MQTT payloads against Thresholds.
type Engine struct {
	extractor  ports.TelemetryExtractor
	thresholds Thresholds
}

func NewEngine(extractor ports.TelemetryExtractor, th Thresholds) *Engine {
	return &Engine{extractor: extractor, thresholds: th}
}

// Evaluate returns Drop only for MQTT payloads carrying both readings that
// meet the drop condition. Anything else is allowed.
func (e *Engine) Evaluate(label domain.Label, payload []byte) (Decision, ports.Telemetry) {
	if label != domain.LabelMQTT || e.extractor == nil {
		return Allow, ports.Telemetry{}
	}
	t, ok := e.extractor.Extract(payload)
	if !ok {
		return Allow, ports.Telemetry{}
	}
	if t.Temperature < e.thresholds.TempBelow &&
		(t.Humidity < e.thresholds.HumLow || t.Humidity > e.thresholds.HumHigh) {
		return Drop, t
	}
	return Allow, t
}
