// Package expreplay implements a bounded experience replay buffer that
// stores timestep.Transitions and samples uniform mini-batches of them.
package expreplay

import (
	"gonum.org/v1/gonum/mat"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Add(t timestep.Transition) error

	// Sample samples batchSize distinct transitions uniformly from the
	// buffer. If fewer than batchSize transitions are stored, an
	// *ExpReplayError is returned for which IsInsufficientSamples holds.
	Sample(batchSize int) (Batch, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// MaxCapacity returns the maximum allowable transitions in the buffer
	MaxCapacity() int
}

// Batch is a mini-batch of transitions flattened into row-major
// slices so that they can be used directly as tensor backings. Row i of
// State and NextState holds the state vectors of the i-th transition.
type Batch struct {
	State     []float64
	Action    []int
	Reward    []float64
	Discount  []float64 // 0 for terminal transitions, 1 otherwise
	NextState []float64

	featureSize int
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Action)
}

// Transition reconstructs the i-th transition in the batch
func (b Batch) Transition(i int) timestep.Transition {
	start, end := i*b.featureSize, (i+1)*b.featureSize

	state := make([]float64, b.featureSize)
	copy(state, b.State[start:end])
	nextState := make([]float64, b.featureSize)
	copy(nextState, b.NextState[start:end])

	return timestep.Transition{
		State:     mat.NewVecDense(b.featureSize, state),
		Action:    b.Action[i],
		Reward:    b.Reward[i],
		NextState: mat.NewVecDense(b.featureSize, nextState),
		Done:      b.Discount[i] == 0.0,
	}
}
