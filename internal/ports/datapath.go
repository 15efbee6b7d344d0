package ports

import "github.com/ghalamif/AegisSDN/internal/domain"

// Datapath accepts commands for the switches. Commands are fire-and-forget:
// callers log a returned error but never retry.
type Datapath interface {
	InstallRule(rule domain.FlowRule) error
	Forward(out domain.PacketOut) error
}
