// Package initwfn resolves named weight initialization algorithms into
// Gorgonia InitWFn's so that they can be chosen from configuration.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU Type = "glorot_u"
	GlorotN Type = "glorot_n"
	HeU     Type = "he_u"
	HeN     Type = "he_n"
	Zeroes  Type = "zeroes"
)

// Types returns all available InitWFn types
func Types() []Type {
	return []Type{GlorotU, GlorotN, HeU, HeN, Zeroes}
}

// InitWFn pairs a Gorgonia InitWFn with the Type that created it
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Gain float64
}

// New returns the InitWFn of type t. The gain parameter is ignored by
// initializers that do not use one.
func New(t Type, gain float64) (*InitWFn, error) {
	var init G.InitWFn

	switch t {
	case GlorotU:
		init = G.GlorotU(gain)
	case GlorotN:
		init = G.GlorotN(gain)
	case HeU:
		init = G.HeU(gain)
	case HeN:
		init = G.HeN(gain)
	case Zeroes:
		init = G.Zeroes()
	default:
		return nil, fmt.Errorf("new: unknown InitWFn type %q expecting "+
			"one of %v", t, Types())
	}

	return &InitWFn{initWFn: init, Type: t, Gain: gain}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: gain=%v}", w.Type, w.Gain)
}
