package deepq

import (
	"fmt"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/policy"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/initwfn"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/network"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
)

// Config implements a configuration for a DQN agent
type Config struct {
	Features int // Length of state observation vectors
	Actions  int // Number of discrete actions

	PolicyLayers []int                 // Layer sizes in neural net
	Activations  []*network.Activation // Activation of each layer
	InitWFn      *initwfn.InitWFn      // Initialization algorithm for weights

	Solver   solver.Type
	StepSize float64
	ClipNorm float64 // Maximum global gradient norm, <= 0 if no clipping

	Gamma       float64            // Discount factor
	Exploration policy.LinearDecay // Behaviour policy epsilon schedule

	// Experience replay parameters
	Capacity  int
	BatchSize int

	// Number of learning steps between target network updates
	TargetUpdateInterval int

	Seed uint64
}

// Validate checks a Config to ensure it is a valid configuration of a
// DQN agent.
func (c Config) Validate() error {
	if c.Features < 1 || c.Actions < 1 {
		return fmt.Errorf("validate: features and actions must be positive"+
			"\n\thave(features=%v actions=%v)", c.Features, c.Actions)
	}

	if len(c.PolicyLayers) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyLayers),
			len(c.Activations))
	}

	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initialization algorithm")
	}

	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive"+
			"\n\thave(%v)", c.StepSize)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1]\n\thave(%v)",
			c.Gamma)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive"+
			"\n\thave(%v)", c.BatchSize)
	}

	if c.BatchSize > c.Capacity {
		return fmt.Errorf("validate: batch size cannot exceed replay "+
			"capacity\n\twant(<=%v)\n\thave(%v)", c.Capacity, c.BatchSize)
	}

	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}

	if c.Exploration.Steps < 1 {
		return fmt.Errorf("validate: epsilon must decay over a positive "+
			"number of steps\n\thave(%v)", c.Exploration.Steps)
	}

	return nil
}

// CreateAgent creates a new DQN agent based on the configuration for
// an environment with the given observation length and number of
// actions
func (c Config) CreateAgent(features, actions int) (agent.Agent, error) {
	c.Features = features
	c.Actions = actions

	d, err := New(c)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var _ agent.Agent = &DQN{}
