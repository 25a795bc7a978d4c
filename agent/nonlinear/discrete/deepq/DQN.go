// Package deepq implements the DQN algorithm: Q-learning with a neural
// network, experience replay, and a periodically synchronized target
// network.
package deepq

import (
	"fmt"

	"github.com/sirupsen/logrus"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/policy"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/expreplay"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/network"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/utils/floatutils"
)

var log = logrus.WithField("component", "deepq")

// DQN implements the deep Q-network algorithm using the Huber loss.
//
// Three networks share the same architecture: the behaviour policy's
// network evaluates single observations, the training network is
// optimized on batches, and the target network provides the update
// target for batches. The behaviour policy's weights are copied from
// the training network after every learning step. The target network's
// weights are copied every TargetUpdateInterval learning steps.
type DQN struct {
	// Behaviour policy
	policy *policy.EGreedyMLP

	// Network whose weights are adapted, takes batches of inputs
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     *solver.Solver
	clipNorm   float64

	// Network that provides the update target for a batch of inputs
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// selectedActions holds one-hot vectors of the sampled actions so
	// that the training network's value of each sampled action can be
	// selected from its N outputs. targets holds the TD targets
	// r + γ * max[Q(s', a')] computed with the target network.
	selectedActions *G.Node
	targets         *G.Node
	lossVal         G.Value

	replay expreplay.ExperienceReplayer

	gamma                float64
	targetUpdateInterval int
	batchSize            int
	numActions           int
	numFeatures          int

	// Number of completed learning steps
	counter  int
	lastLoss float64
}

// New creates and returns a new DQN agent
func New(c Config) (*DQN, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	// Behaviour network for selecting actions
	net, err := network.NewMLP(c.Features, 1, c.Actions, G.NewGraph(),
		c.PolicyLayers, c.InitWFn.InitWFn(), c.Activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create network: %w", err)
	}
	behaviourPolicy, err := policy.NewEGreedyMLP(net, c.Exploration, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %w", err)
	}

	// Create the target network which provides the update target
	targetNet, err := net.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %w",
			err)
	}
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	// Create a training network which learns the weights
	trainNet, err := net.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %w",
			err)
	}
	gTrain := trainNet.Graph()

	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(c.BatchSize, c.Actions),
		G.WithInit(G.Zeroes()),
	)
	targets := G.NewVector(
		gTrain,
		tensor.Float64,
		G.WithName("tdTarget"),
		G.WithShape(c.BatchSize),
		G.WithInit(G.Zeroes()),
	)

	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	cost := huberLoss(gTrain, selectedActionsValue, targets, c.BatchSize)

	d := &DQN{
		policy:               behaviourPolicy,
		trainNet:             trainNet,
		clipNorm:             c.ClipNorm,
		targetNet:            targetNet,
		targetNetVM:          targetNetVM,
		selectedActions:      selectedActions,
		targets:              targets,
		gamma:                c.Gamma,
		targetUpdateInterval: c.TargetUpdateInterval,
		batchSize:            c.BatchSize,
		numActions:           c.Actions,
		numFeatures:          c.Features,
	}
	G.Read(cost, &d.lossVal)

	// Compute the gradient with respect to the Huber loss
	_, err = G.Grad(cost, trainNet.Learnables()...)
	if err != nil {
		msg := fmt.Sprintf("new: could not compute gradient: %v", err)
		panic(msg)
	}

	// Compile the trainNet graph into a VM
	d.trainNetVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)

	d.solver, err = solver.New(c.Solver, c.StepSize)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	d.replay, err = expreplay.New(expreplay.NewUniformSelector(c.Seed+1),
		c.Capacity, c.Features)
	if err != nil {
		msg := "new: could not create experience replay buffer: %w"
		return nil, fmt.Errorf(msg, err)
	}

	log.WithFields(logrus.Fields{
		"features":     c.Features,
		"actions":      c.Actions,
		"layers":       c.PolicyLayers,
		"batch_size":   c.BatchSize,
		"capacity":     d.replay.MaxCapacity(),
		"target_every": c.TargetUpdateInterval,
		"solver":       c.Solver,
		"step_size":    c.StepSize,
	}).Debug("dqn agent created")

	return d, nil
}

// huberLoss adds the mean Huber loss between predictions and targets to
// the graph g. With δ = 1, the loss of a difference x is
//
//	0.5 * min(|x|, 1)^2 + max(|x| - 1, 0)
func huberLoss(g *G.ExprGraph, predictions, targets *G.Node,
	batch int) *G.Node {
	ones := G.NewVector(g, tensor.Float64, G.WithName("huberDelta"),
		G.WithShape(batch), G.WithInit(G.Ones()))
	halves := G.NewVector(g, tensor.Float64, G.WithName("huberHalf"),
		G.WithShape(batch), G.WithInit(G.ValuesOf(0.5)))

	absErr := G.Must(G.Abs(G.Must(G.Sub(predictions, targets))))
	linear := G.Must(G.Rectify(G.Must(G.Sub(absErr, ones))))
	quadratic := G.Must(G.Sub(absErr, linear))

	losses := G.Must(G.HadamardProd(halves, G.Must(G.Square(quadratic))))
	losses = G.Must(G.Add(losses, linear))
	return G.Must(G.Mean(losses))
}

// TDTargets returns the update targets r + γ * max[Q(s', a')] * discount
// given the maximum next state action values. A discount of 0 marks a
// terminal transition, whose target is its reward.
func TDTargets(rewards, discounts, nextMax []float64, gamma float64) []float64 {
	targets := make([]float64, len(rewards))
	for i := range rewards {
		targets[i] = rewards[i]
		if discounts[i] != 0 {
			targets[i] += gamma * nextMax[i] * discounts[i]
		}
	}
	return targets
}

// SelectAction returns an action selected by the behaviour policy in
// the state obs. In evaluation mode the greedy action is always taken.
func (d *DQN) SelectAction(obs []float64, eval bool) (int, error) {
	action, err := d.policy.SelectAction(obs, d.counter, eval)
	if err != nil {
		return 0, fmt.Errorf("selectaction: %w", err)
	}
	return action, nil
}

// Epsilon returns the current exploration probability of the behaviour
// policy
func (d *DQN) Epsilon() float64 {
	return d.policy.Epsilon(d.counter)
}

// Remember adds a transition to the replay buffer
func (d *DQN) Remember(t ts.Transition) error {
	if t.Action < 0 || t.Action >= d.numActions {
		return fmt.Errorf("remember: action %v out of range [0, %v)",
			t.Action, d.numActions)
	}
	if err := d.replay.Add(t); err != nil {
		return fmt.Errorf("remember: %w", err)
	}
	return nil
}

// Step performs a single learning step. If the replay buffer holds
// fewer transitions than the batch size, Step does nothing.
func (d *DQN) Step() error {
	if d.replay.Len() < d.batchSize {
		return nil
	}

	batch, err := d.replay.Sample(d.batchSize)
	if err != nil {
		panic(fmt.Sprintf("step: could not sample %v transitions from %v: %v",
			d.batchSize, d.replay.Len(), err))
	}

	// Compute the update targets with the target network
	nextValues, err := d.targetValues(batch.NextState)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	targets := TDTargets(batch.Reward, batch.Discount,
		floatutils.MaxRows(nextValues, d.numActions), d.gamma)

	targetTensor := tensor.New(tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize))
	if err := G.Let(d.targets, targetTensor); err != nil {
		panic(fmt.Sprintf("step: could not set targets: %v", err))
	}

	// Previous action one-hot vectors
	oneHot := make([]float64, d.batchSize*d.numActions)
	for i, a := range batch.Action {
		oneHot[i*d.numActions+a] = 1.0
	}
	actionTensor := tensor.New(tensor.WithBacking(oneHot),
		tensor.WithShape(d.batchSize, d.numActions))
	if err := G.Let(d.selectedActions, actionTensor); err != nil {
		panic(fmt.Sprintf("step: could not set selected actions: %v", err))
	}

	if err := d.trainNet.SetInput(batch.State); err != nil {
		panic(fmt.Sprintf("step: could not set trainNet input: %v", err))
	}

	// Run the learning step
	if err := d.learn(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	d.counter++

	// Update the target network by setting its weights to the newly
	// learned weights
	if d.counter%d.targetUpdateInterval == 0 {
		if err := d.targetNet.Set(d.trainNet); err != nil {
			return fmt.Errorf("step: could not update target network: %w",
				err)
		}
		log.WithField("counter", d.counter).Debug("target network updated")
	}

	if err := d.policy.Set(d.trainNet); err != nil {
		return fmt.Errorf("step: could not update policy: %w", err)
	}

	log.WithFields(logrus.Fields{
		"counter": d.counter,
		"loss":    d.lastLoss,
		"epsilon": d.Epsilon(),
	}).Debug("learning step")
	return nil
}

// targetValues returns the target network's action values in each of
// the batched states, in row major order
func (d *DQN) targetValues(states []float64) ([]float64, error) {
	if err := d.targetNet.SetInput(states); err != nil {
		panic(fmt.Sprintf("targetvalues: could not set target net input: %v",
			err))
	}
	defer d.targetNetVM.Reset()

	if err := d.targetNetVM.RunAll(); err != nil {
		return nil, fmt.Errorf("targetvalues: %w", err)
	}

	values := d.targetNet.Output().Data().([]float64)
	return append([]float64(nil), values...), nil
}

// learn runs the training network's forward and backward passes, then
// updates its weights with the clipped gradients
func (d *DQN) learn() error {
	defer d.trainNetVM.Reset()

	if err := d.trainNetVM.RunAll(); err != nil {
		return fmt.Errorf("learn: %w", err)
	}
	d.lastLoss = d.lossVal.Data().(float64)

	model := d.trainNet.Model()
	if d.clipNorm > 0 {
		if _, err := solver.ClipGradNorm(model, d.clipNorm); err != nil {
			return fmt.Errorf("learn: %w", err)
		}
	}

	if err := d.solver.Step(model); err != nil {
		return fmt.Errorf("learn: %w", err)
	}
	return nil
}

// Counter returns the number of completed learning steps
func (d *DQN) Counter() int {
	return d.counter
}

// Loss returns the loss of the last learning step
func (d *DQN) Loss() float64 {
	return d.lastLoss
}

// ReplayLen returns the number of transitions in the replay buffer
func (d *DQN) ReplayLen() int {
	return d.replay.Len()
}

// OnlineWeights returns a copy of the training network's weights
func (d *DQN) OnlineWeights() [][]float64 {
	return d.trainNet.Weights()
}

// TargetWeights returns a copy of the target network's weights
func (d *DQN) TargetWeights() [][]float64 {
	return d.targetNet.Weights()
}

// Close closes the VMs of the agent
func (d *DQN) Close() error {
	var firstErr error
	for _, vm := range []G.VM{d.trainNetVM, d.targetNetVM} {
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := d.policy.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
