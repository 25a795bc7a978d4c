package agent

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes for an
	// environment with the given observation length and number of
	// actions
	CreateAgent(features, actions int) (Agent, error)
}
