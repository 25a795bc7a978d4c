package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single (s, a, r, s', done) tuple. A Transition owns
// copies of its state vectors and should be treated as read-only once
// constructed.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition returns the Transition generated by taking action in
// the observation of step and then observing next. Both observation
// vectors are copied.
func NewTransition(step TimeStep, action int, next TimeStep) (Transition,
	error) {
	if step.Observation.Len() != next.Observation.Len() {
		return Transition{}, fmt.Errorf("newTransition: state and next "+
			"state have different sizes \n\twant(%v) \n\thave(%v)",
			step.Observation.Len(), next.Observation.Len())
	}

	return Transition{
		State:     mat.VecDenseCopyOf(step.Observation),
		Action:    action,
		Reward:    next.Reward,
		NextState: mat.VecDenseCopyOf(next.Observation),
		Done:      next.Last(),
	}, nil
}

// Discount returns the factor multiplying the bootstrapped next state
// value of the Transition: 0 for terminal transitions and 1 otherwise.
func (t Transition) Discount() float64 {
	if t.Done {
		return 0.0
	}
	return 1.0
}

func (t Transition) String() string {
	str := "Transition | Action: %v  |  Reward:  %.2f  |  Done: %v"

	return fmt.Sprintf(str, t.Action, t.Reward, t.Done)
}
