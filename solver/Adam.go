package solver

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize float64
	Epsilon  float64 // Smoothing factor
	Beta1    float64
	Beta2    float64
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64) (*Solver, error) {
	adam := AdamConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
	}

	return newSolver(Adam, adam)
}

// Create returns a new AdamSolver as described by the AdamConfig
func (a AdamConfig) Create() G.Solver {
	return &AdamSolver{config: a}
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// AdamSolver implements the Adam algorithm with bias corrected moment
// estimates. Unlike the Gorgonia Adam solver, its moments can be
// exported and restored.
//
// Moments are kept per position in the model passed to Step, so the
// same model must be passed on every call.
type AdamSolver struct {
	config AdamConfig
	step   int
	m, v   [][]float64
}

// Step performs a single update of all learnables in model using their
// gradients. The gradients are zeroed once applied, since the tape
// machine accumulates into them.
func (a *AdamSolver) Step(model []G.ValueGrad) error {
	if a.m == nil {
		a.m = make([][]float64, len(model))
		a.v = make([][]float64, len(model))
	}
	if len(model) != len(a.m) {
		return fmt.Errorf("step: model has %v learnables but solver "+
			"tracks %v", len(model), len(a.m))
	}

	a.step++
	correction1 := 1 - math.Pow(a.config.Beta1, float64(a.step))
	correction2 := 1 - math.Pow(a.config.Beta2, float64(a.step))

	for i, node := range model {
		weights, grads, err := valueGrad(node)
		if err != nil {
			return fmt.Errorf("step: %v", err)
		}

		if a.m[i] == nil {
			a.m[i] = make([]float64, len(weights))
			a.v[i] = make([]float64, len(weights))
		}
		m, v := a.m[i], a.v[i]
		if len(m) != len(weights) {
			return fmt.Errorf("step: learnable %v has %v weights but "+
				"solver tracks %v", i, len(weights), len(m))
		}

		for j, g := range grads {
			m[j] = a.config.Beta1*m[j] + (1-a.config.Beta1)*g
			v[j] = a.config.Beta2*v[j] + (1-a.config.Beta2)*g*g

			mHat := m[j] / correction1
			vHat := v[j] / correction2
			weights[j] -= a.config.StepSize * mHat /
				(math.Sqrt(vHat) + a.config.Epsilon)
			grads[j] = 0
		}
	}

	return nil
}

// State returns a copy of the solver's step count and moments
func (a *AdamSolver) State() State {
	return State{Step: a.step, M: copyMoments(a.m), V: copyMoments(a.v)}
}

// SetState replaces the solver's step count and moments with a copy of
// those in state
func (a *AdamSolver) SetState(state State) error {
	if len(state.M) != len(state.V) {
		return fmt.Errorf("setstate: have %v first moments but %v second "+
			"moments", len(state.M), len(state.V))
	}
	if state.Step < 0 {
		return fmt.Errorf("setstate: step must be non-negative")
	}

	a.step = state.Step
	a.m = copyMoments(state.M)
	a.v = copyMoments(state.V)
	return nil
}

func copyMoments(moments [][]float64) [][]float64 {
	if moments == nil {
		return nil
	}
	out := make([][]float64, len(moments))
	for i := range moments {
		if moments[i] != nil {
			out[i] = append([]float64(nil), moments[i]...)
		}
	}
	return out
}

// valueGrad returns the backing data of a learnable and its gradient
func valueGrad(node G.ValueGrad) ([]float64, []float64, error) {
	grad, err := node.Grad()
	if err != nil {
		return nil, nil, err
	}

	weights, ok := node.Value().Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("weights must be float64")
	}
	grads, ok := grad.Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("gradients must be float64")
	}
	if len(weights) != len(grads) {
		return nil, nil, fmt.Errorf("have %v weights but %v gradients",
			len(weights), len(grads))
	}
	return weights, grads, nil
}
