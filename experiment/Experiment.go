// Package experiment implements the training session run over a
// single connection to the simulator
package experiment

import (
	"fmt"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/bridge"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
)

// State is the stage of the session state machine an Online session
// is in
type State int

const (
	AwaitConnection State = iota
	Handshake
	Step
	EpisodeEnd
)

func (s State) String() string {
	switch s {
	case AwaitConnection:
		return "AwaitConnection"
	case Handshake:
		return "Handshake"
	case Step:
		return "Step"
	case EpisodeEnd:
		return "EpisodeEnd"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config represents a configuration of a training session
type Config struct {
	// Agent creates the agent once the simulator has declared the
	// observation length and number of actions
	Agent agent.Config

	// Store holds the checkpoint which is loaded at the start of the
	// session and saved at the end of each episode
	Store checkpointer.Store

	RewardLog string // Episodic returns are appended here
	PlotPath  string // Reward curve, not rendered if empty

	// ContinueEpisodes keeps the session alive after an episode ends,
	// waiting for the first observation of the next episode on the
	// same connection
	ContinueEpisodes bool

	// Fallback is used in place of a malformed handshake
	Fallback bridge.Handshake
}

// Validate checks a Config to ensure it describes a runnable session
func (c Config) Validate() error {
	if c.Agent == nil {
		return fmt.Errorf("validate: no agent configuration")
	}
	if c.Store == nil {
		return fmt.Errorf("validate: no checkpoint store")
	}
	if c.RewardLog == "" {
		return fmt.Errorf("validate: no reward log")
	}
	if c.Fallback.NumStates < 1 || c.Fallback.NumActions < 1 {
		return fmt.Errorf("validate: fallback dimensions must be positive"+
			"\n\thave(states=%v actions=%v)", c.Fallback.NumStates,
			c.Fallback.NumActions)
	}
	return nil
}
