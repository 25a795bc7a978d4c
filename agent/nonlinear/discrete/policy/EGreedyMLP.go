// Package policy implements action selection policies that use
// nonlinear function approximation with Gorgonia.
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/network"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/utils/floatutils"
)

// EGreedyMLP implements an epsilon greedy policy using a feedforward
// neural network. Given an environment with N actions, the network
// produces N outputs, each predicting the value of a distinct action.
//
// Unlike the networks used for learning, EGreedyMLP owns a VM over its
// network's graph and always selects an action for a single
// observation, so its network must have a batch size of 1. Its weights
// are kept in sync with a learning network through Set.
type EGreedyMLP struct {
	network.NeuralNet
	vm G.VM

	schedule LinearDecay
	rng      *rand.Rand
}

// NewEGreedyMLP returns a new EGreedyMLP that selects actions with the
// network net and explores according to schedule.
func NewEGreedyMLP(net network.NeuralNet, schedule LinearDecay,
	seed uint64) (*EGreedyMLP, error) {
	if net.BatchSize() != 1 {
		return nil, fmt.Errorf("newegreedymlp: network must have batch size "+
			"1\n\thave(%v)", net.BatchSize())
	}
	if schedule.Steps < 1 {
		return nil, fmt.Errorf("newegreedymlp: epsilon must decay over at "+
			"least 1 step\n\thave(%v)", schedule.Steps)
	}

	return &EGreedyMLP{
		NeuralNet: net,
		vm:        G.NewTapeMachine(net.Graph()),
		schedule:  schedule,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Epsilon returns the exploration probability after counter learning
// steps
func (e *EGreedyMLP) Epsilon(counter int) float64 {
	return e.schedule.Epsilon(counter)
}

// ActionValues runs the network on a single observation and returns the
// predicted value of each action
func (e *EGreedyMLP) ActionValues(obs []float64) ([]float64, error) {
	if err := e.SetInput(obs); err != nil {
		return nil, fmt.Errorf("actionvalues: %w", err)
	}
	defer e.vm.Reset()

	if err := e.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("actionvalues: could not run network: %w", err)
	}

	values := e.Output().Data().([]float64)
	return append([]float64(nil), values...), nil
}

// SelectAction selects an action in the state obs. When not in
// evaluation mode, a uniform random action is taken with probability
// Epsilon(counter). Otherwise, the first action of maximum value is
// taken.
func (e *EGreedyMLP) SelectAction(obs []float64, counter int,
	eval bool) (int, error) {
	if !eval && e.rng.Float64() < e.Epsilon(counter) {
		return e.rng.Intn(e.Outputs()), nil
	}

	values, err := e.ActionValues(obs)
	if err != nil {
		return 0, fmt.Errorf("selectaction: %w", err)
	}

	_, action := floatutils.Argmax(values)
	return action, nil
}

// Close closes the policy's VM
func (e *EGreedyMLP) Close() error {
	return e.vm.Close()
}
