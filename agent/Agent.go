// Package agent defines an agent interface
package agent

import (
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
// An Agent can be checkpointed and restored, and must be closed after
// it is done learning.
type Agent interface {
	Learner
	Policy
	checkpointer.Snapshotter

	// Restore restores the state of the Agent from a checkpoint. If the
	// checkpoint cannot be restored, the Agent is left unchanged.
	Restore(checkpointer.Record) error

	Close() error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Remember records a transition to learn from
	Remember(timestep.Transition) error
}

// Policy represents a policy that an agent can have.
type Policy interface {
	// SelectAction selects an action in the state given by an
	// observation vector. In evaluation mode the policy does not
	// explore.
	SelectAction(obs []float64, eval bool) (int, error)

	// Epsilon returns the current exploration probability
	Epsilon() float64
}
