// Package solver implements the gradient descent solvers used to train
// neural networks, wrapped so that they can be selected by name from
// configuration.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	Vanilla Type = "vanilla"
)

// Solver wraps Gorgonia Solvers together with the Type that created
// them
type Solver struct {
	G.Solver
	Type
	Config
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

// Stateful is a Gorgonia Solver whose internal state can be exported
// and later restored, so that training can resume from a checkpoint.
type Stateful interface {
	G.Solver
	State() State
	SetState(State) error
}

// State is the exported internal state of a Stateful solver. Moments
// are stored per learnable, in the order that learnables are passed to
// Step.
type State struct {
	Step int
	M    [][]float64
	V    [][]float64
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// New returns a new solver of type t with default hyperparameters and
// the given step size
func New(t Type, stepSize float64) (*Solver, error) {
	switch t {
	case Adam:
		return NewDefaultAdam(stepSize)
	case Vanilla:
		return NewVanilla(stepSize)
	default:
		return nil, fmt.Errorf("new: unknown solver type %q", t)
	}
}

// State returns the exported state of the wrapped solver and whether
// the wrapped solver has any state to export
func (s *Solver) State() (State, bool) {
	stateful, ok := s.Solver.(Stateful)
	if !ok {
		return State{}, false
	}
	return stateful.State(), true
}

// SetState restores the state of the wrapped solver. Solvers without
// state only accept the zero State.
func (s *Solver) SetState(state State) error {
	stateful, ok := s.Solver.(Stateful)
	if !ok {
		if state.Step != 0 || len(state.M) != 0 || len(state.V) != 0 {
			return fmt.Errorf("setstate: solver %v has no state", s.Type)
		}
		return nil
	}
	return stateful.SetState(state)
}
