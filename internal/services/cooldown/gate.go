package cooldown

import "time"

// Gate enforces a minimum interval between recorded dispatches. Detection
// loss never resets it.
type Gate struct {
	interval time.Duration
	last     time.Time
	recorded bool
}

// NewGate creates a gate with the given cooldown interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// IsClear reports whether a dispatch may happen at now.
func (g *Gate) IsClear(now time.Time) bool {
	if !g.recorded {
		return true
	}
	return now.Sub(g.last) >= g.interval
}

// Record marks now as the time of the latest dispatch.
func (g *Gate) Record(now time.Time) {
	g.last = now
	g.recorded = true
}

// Remaining returns how long until the gate clears, zero when already clear.
func (g *Gate) Remaining(now time.Time) time.Duration {
	if g.IsClear(now) {
		return 0
	}
	return g.interval - now.Sub(g.last)
}

// LastDispatch returns the time of the latest recorded dispatch, if any.
func (g *Gate) LastDispatch() (time.Time, bool) {
	return g.last, g.recorded
}

// Interval returns the configured cooldown.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
