package anomaly

import "sync"

// BindingGuard remembers, per switch, the first MAC seen claiming each IP in
// ARP traffic. Bindings are never overwritten.
type BindingGuard struct {
	mu       sync.Mutex
	bindings map[uint64]map[string]string
}

func NewBindingGuard() *BindingGuard {
	return &BindingGuard{bindings: make(map[uint64]map[string]string)}
}

// Check binds ip to mac on first sight and reports Conflict when a
// different MAC later claims the same IP.
func (g *BindingGuard) Check(switchID uint64, ip, mac string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	sw, ok := g.bindings[switchID]
	if !ok {
		sw = make(map[string]string)
		g.bindings[switchID] = sw
	}
	bound, ok := sw[ip]
	if !ok {
		sw[ip] = mac
		return Allow
	}
	if bound != mac {
		return Conflict
	}
	return Allow
}

// Binding returns the MAC bound to ip on a switch.
func (g *BindingGuard) Binding(switchID uint64, ip string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	mac, ok := g.bindings[switchID][ip]
	return mac, ok
}
