package policy

import "math"

// LinearDecay decays epsilon linearly from Start to Final over Steps
// learning steps, after which it stays at Final.
type LinearDecay struct {
	Start float64
	Final float64
	Steps int
}

// Epsilon returns the value of epsilon after counter learning steps
func (l LinearDecay) Epsilon(counter int) float64 {
	decayed := l.Start - (l.Start-l.Final)*(float64(counter)/float64(l.Steps))
	return math.Max(l.Final, decayed)
}
