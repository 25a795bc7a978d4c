package deepq

import (
	"fmt"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
)

// Snapshot returns a checkpoint of the agent's online and target
// weights, solver state, and learning step counter
func (d *DQN) Snapshot() checkpointer.Record {
	state, _ := d.solver.State()

	return checkpointer.Record{
		Features: d.numFeatures,
		Actions:  d.numActions,
		Online:   d.trainNet.Weights(),
		Target:   d.targetNet.Weights(),
		Solver:   state,
		Counter:  d.counter,
	}
}

// Restore replaces the agent's weights, solver state, and learning
// step counter with those in r. If r cannot be restored, the agent is
// left unchanged.
func (d *DQN) Restore(r checkpointer.Record) error {
	if err := r.Compatible(d.numFeatures, d.numActions); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if r.Counter < 0 {
		return fmt.Errorf("restore: negative learning step counter %v",
			r.Counter)
	}
	if err := momentsMatch(r.Solver.M, r.Online); err != nil {
		return fmt.Errorf("restore: first moments: %w", err)
	}
	if err := momentsMatch(r.Solver.V, r.Online); err != nil {
		return fmt.Errorf("restore: second moments: %w", err)
	}

	online := d.trainNet.Weights()
	target := d.targetNet.Weights()
	state, _ := d.solver.State()

	err := d.restore(r)
	if err == nil {
		return nil
	}

	// Roll back any partially restored state
	if rollbackErr := d.restore(checkpointer.Record{
		Online:  online,
		Target:  target,
		Solver:  state,
		Counter: d.counter,
	}); rollbackErr != nil {
		panic(fmt.Sprintf("restore: could not roll back: %v", rollbackErr))
	}
	return fmt.Errorf("restore: %w", err)
}

func (d *DQN) restore(r checkpointer.Record) error {
	if err := d.trainNet.SetWeights(r.Online); err != nil {
		return fmt.Errorf("online weights: %w", err)
	}
	if err := d.targetNet.SetWeights(r.Target); err != nil {
		return fmt.Errorf("target weights: %w", err)
	}
	if err := d.solver.SetState(r.Solver); err != nil {
		return fmt.Errorf("solver state: %w", err)
	}
	if err := d.policy.Set(d.trainNet); err != nil {
		return fmt.Errorf("policy weights: %w", err)
	}

	d.counter = r.Counter
	return nil
}

// momentsMatch returns an error if solver moments were not tracked for
// the given weights. Empty moments, from a solver that has not yet
// stepped, always match.
func momentsMatch(moments, weights [][]float64) error {
	if len(moments) == 0 {
		return nil
	}
	if len(moments) != len(weights) {
		return fmt.Errorf("have %v learnables but %v weight sets",
			len(moments), len(weights))
	}
	for i := range moments {
		if len(moments[i]) != len(weights[i]) {
			return fmt.Errorf("learnable %v has %v moments but %v weights",
				i, len(moments[i]), len(weights[i]))
		}
	}
	return nil
}
