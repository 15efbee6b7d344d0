package ports

// Telemetry holds the sensor readings found in an application payload.
type Telemetry struct {
	Temperature int64
	Humidity    int64
}

// TelemetryExtractor pulls sensor readings out of raw frame bytes. ok is
// false when the payload lacks either reading.
type TelemetryExtractor interface {
	Extract(payload []byte) (t Telemetry, ok bool)
	Name() string
}
