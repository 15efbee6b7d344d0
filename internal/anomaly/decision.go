// Package anomaly implements the inline intrusion guards: a per-source rate
// limiter, an ARP address-binding guard and a flow replay guard. Each guard
// owns its state and is safe for concurrent use.
package anomaly

// Decision is the outcome of a guard check.
type Decision uint8

const (
	Allow Decision = iota
	Block
	Conflict
	Violation
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Block:
		return "block"
	case Conflict:
		return "conflict"
	case Violation:
		return "violation"
	default:
		return "unknown"
	}
}
