// Package config implements the configuration of a training server,
// built once at startup and passed to every component that needs it
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/deepq"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/policy"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/bridge"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/initwfn"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/network"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
)

// Server configures where the server listens for the simulator
type Server struct {
	Host string
	Port int
}

// Address returns the host:port address to listen on
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Agent configures the DQN agent
type Agent struct {
	LearningRate float64
	Gamma        float64

	EpsStart float64
	EpsFinal float64
	EpsDecay int // Learning steps over which epsilon decays

	Capacity  int
	BatchSize int
	TargetTau int // Learning steps between target network updates

	Hidden     []int
	Activation string
	InitWFn    initwfn.Type
	InitGain   float64
	Solver     solver.Type
	ClipNorm   float64

	Seed uint64
}

// Storage configures where the session persists its data
type Storage struct {
	Backend    checkpointer.Backend
	Checkpoint string
	RewardLog  string
	Plot       string
}

// Session configures the behaviour of a session
type Session struct {
	ContinueEpisodes bool

	// Dimensions used when the handshake is malformed
	FallbackStates  int
	FallbackActions int
}

// Config is the complete configuration of a training server
type Config struct {
	Server  Server
	Agent   Agent
	Storage Storage
	Session Session
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Server: Server{
			Host: "127.0.0.1",
			Port: 5555,
		},
		Agent: Agent{
			LearningRate: 4e-4,
			Gamma:        0.95,
			EpsStart:     0.25,
			EpsFinal:     0.05,
			EpsDecay:     2000,
			Capacity:     10000,
			BatchSize:    32,
			TargetTau:    500,
			Hidden:       []int{64, 64},
			Activation:   "relu",
			InitWFn:      initwfn.GlorotU,
			InitGain:     1.0,
			Solver:       solver.Adam,
			ClipNorm:     1.0,
			Seed:         1,
		},
		Storage: Storage{
			Backend:    checkpointer.File,
			Checkpoint: "dqn_model.gob",
			RewardLog:  "reward_log.txt",
			Plot:       "episode_rewards.png",
		},
		Session: Session{
			ContinueEpisodes: false,
			FallbackStates:   8,
			FallbackActions:  5,
		},
	}
}

// Validate checks a Config to ensure it describes a valid server
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("validate: port must be in [1, 65535]\n\thave(%v)",
			c.Server.Port)
	}

	if err := c.Agent.validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	switch c.Storage.Backend {
	case checkpointer.File, checkpointer.Bolt:
	default:
		return fmt.Errorf("validate: unknown checkpoint backend %q",
			c.Storage.Backend)
	}
	if c.Storage.Checkpoint == "" || c.Storage.RewardLog == "" {
		return fmt.Errorf("validate: checkpoint and reward log paths are " +
			"required")
	}

	if c.Session.FallbackStates < 1 || c.Session.FallbackActions < 1 {
		return fmt.Errorf("validate: fallback dimensions must be positive"+
			"\n\thave(states=%v actions=%v)", c.Session.FallbackStates,
			c.Session.FallbackActions)
	}
	return nil
}

func (a Agent) validate() error {
	if a.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive\n\thave(%v)",
			a.LearningRate)
	}
	if a.Gamma < 0 || a.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1]\n\thave(%v)", a.Gamma)
	}
	if a.EpsStart < 0 || a.EpsStart > 1 || a.EpsFinal < 0 || a.EpsFinal > 1 {
		return fmt.Errorf("epsilon must be in [0, 1]\n\thave(start=%v "+
			"final=%v)", a.EpsStart, a.EpsFinal)
	}
	if a.EpsFinal > a.EpsStart {
		return fmt.Errorf("final epsilon cannot exceed starting epsilon"+
			"\n\thave(start=%v final=%v)", a.EpsStart, a.EpsFinal)
	}
	if a.EpsDecay < 1 {
		return fmt.Errorf("epsilon decay must be positive\n\thave(%v)",
			a.EpsDecay)
	}
	if a.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive\n\thave(%v)",
			a.BatchSize)
	}
	if a.BatchSize > a.Capacity {
		return fmt.Errorf("batch size cannot exceed replay capacity"+
			"\n\twant(<=%v)\n\thave(%v)", a.Capacity, a.BatchSize)
	}
	if a.TargetTau < 1 {
		return fmt.Errorf("target update interval must be positive"+
			"\n\thave(%v)", a.TargetTau)
	}
	for _, size := range a.Hidden {
		if size < 1 {
			return fmt.Errorf("hidden layer sizes must be positive"+
				"\n\thave(%v)", a.Hidden)
		}
	}
	if _, err := network.ParseActivation(a.Activation); err != nil {
		return err
	}
	if _, err := initwfn.New(a.InitWFn, a.InitGain); err != nil {
		return err
	}
	if _, err := solver.New(a.Solver, a.LearningRate); err != nil {
		return err
	}
	return nil
}

// DeepQ returns the configuration of the DQN agent described by a.
// The dimensions of the agent are filled in once the simulator has
// declared them.
func (a Agent) DeepQ() (deepq.Config, error) {
	if err := a.validate(); err != nil {
		return deepq.Config{}, fmt.Errorf("deepQ: %w", err)
	}

	names := make([]string, len(a.Hidden))
	for i := range names {
		names[i] = a.Activation
	}
	activations, err := network.ParseActivations(names)
	if err != nil {
		return deepq.Config{}, fmt.Errorf("deepQ: %w", err)
	}

	init, err := initwfn.New(a.InitWFn, a.InitGain)
	if err != nil {
		return deepq.Config{}, fmt.Errorf("deepQ: %w", err)
	}

	return deepq.Config{
		PolicyLayers: append([]int(nil), a.Hidden...),
		Activations:  activations,
		InitWFn:      init,
		Solver:       a.Solver,
		StepSize:     a.LearningRate,
		ClipNorm:     a.ClipNorm,
		Gamma:        a.Gamma,
		Exploration: policy.LinearDecay{
			Start: a.EpsStart,
			Final: a.EpsFinal,
			Steps: a.EpsDecay,
		},
		Capacity:             a.Capacity,
		BatchSize:            a.BatchSize,
		TargetUpdateInterval: a.TargetTau,
		Seed:                 a.Seed,
	}, nil
}

// OpenStore opens the checkpoint store described by the configuration
func (c Config) OpenStore() (checkpointer.Store, error) {
	return checkpointer.Open(c.Storage.Backend, c.Storage.Checkpoint)
}

// Experiment returns the session configuration described by c, saving
// checkpoints to store
func (c Config) Experiment(store checkpointer.Store) (experiment.Config,
	error) {
	agentConfig, err := c.Agent.DeepQ()
	if err != nil {
		return experiment.Config{}, fmt.Errorf("experiment: %w", err)
	}

	return experiment.Config{
		Agent:            agentConfig,
		Store:            store,
		RewardLog:        c.Storage.RewardLog,
		PlotPath:         c.Storage.Plot,
		ContinueEpisodes: c.Session.ContinueEpisodes,
		Fallback: bridge.Handshake{
			NumStates:  c.Session.FallbackStates,
			NumActions: c.Session.FallbackActions,
		},
	}, nil
}

// ParseHidden parses a comma separated list of hidden layer sizes. An
// empty list describes a network without hidden layers.
func ParseHidden(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	fields := strings.Split(s, ",")
	sizes := make([]int, len(fields))
	for i, field := range fields {
		size, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("parseHidden: invalid layer size %q",
				field)
		}
		sizes[i] = size
	}
	return sizes, nil
}

// FormatHidden formats hidden layer sizes the way ParseHidden parses
// them
func FormatHidden(sizes []int) string {
	fields := make([]string, len(sizes))
	for i, size := range sizes {
		fields[i] = strconv.Itoa(size)
	}
	return strings.Join(fields, ",")
}

// Configuration keys, shared by flags, environment variables and
// config files
const (
	HostKey = "host"
	PortKey = "port"

	LearningRateKey = "lr"
	GammaKey        = "gamma"
	EpsStartKey     = "eps_start"
	EpsFinalKey     = "eps_final"
	EpsDecayKey     = "eps_decay"
	CapacityKey     = "buffer_capacity"
	BatchSizeKey    = "batch_size"
	TargetTauKey    = "target_tau"
	HiddenKey       = "hidden"
	ActivationKey   = "activation"
	InitWFnKey      = "init"
	InitGainKey     = "init_gain"
	SolverKey       = "solver"
	ClipNormKey     = "clip_norm"
	SeedKey         = "seed"

	BackendKey    = "checkpoint_backend"
	CheckpointKey = "checkpoint"
	RewardLogKey  = "reward_log"
	PlotKey       = "plot"

	ContinueEpisodesKey = "continue_episodes"
	FallbackStatesKey   = "fallback_states"
	FallbackActionsKey  = "fallback_actions"
)

// Load reads a Config from v. Keys that are not set in v keep their
// default value.
func Load(v *viper.Viper) (Config, error) {
	c := Default()

	setString(v, HostKey, &c.Server.Host)
	setInt(v, PortKey, &c.Server.Port)

	setFloat(v, LearningRateKey, &c.Agent.LearningRate)
	setFloat(v, GammaKey, &c.Agent.Gamma)
	setFloat(v, EpsStartKey, &c.Agent.EpsStart)
	setFloat(v, EpsFinalKey, &c.Agent.EpsFinal)
	setInt(v, EpsDecayKey, &c.Agent.EpsDecay)
	setInt(v, CapacityKey, &c.Agent.Capacity)
	setInt(v, BatchSizeKey, &c.Agent.BatchSize)
	setInt(v, TargetTauKey, &c.Agent.TargetTau)
	if v.IsSet(HiddenKey) {
		hidden, err := ParseHidden(v.GetString(HiddenKey))
		if err != nil {
			return Config{}, fmt.Errorf("load: %w", err)
		}
		c.Agent.Hidden = hidden
	}
	setString(v, ActivationKey, &c.Agent.Activation)
	if v.IsSet(InitWFnKey) {
		c.Agent.InitWFn = initwfn.Type(v.GetString(InitWFnKey))
	}
	setFloat(v, InitGainKey, &c.Agent.InitGain)
	if v.IsSet(SolverKey) {
		c.Agent.Solver = solver.Type(v.GetString(SolverKey))
	}
	setFloat(v, ClipNormKey, &c.Agent.ClipNorm)
	if v.IsSet(SeedKey) {
		c.Agent.Seed = v.GetUint64(SeedKey)
	}

	if v.IsSet(BackendKey) {
		c.Storage.Backend = checkpointer.Backend(v.GetString(BackendKey))
	}
	setString(v, CheckpointKey, &c.Storage.Checkpoint)
	setString(v, RewardLogKey, &c.Storage.RewardLog)
	setString(v, PlotKey, &c.Storage.Plot)

	if v.IsSet(ContinueEpisodesKey) {
		c.Session.ContinueEpisodes = v.GetBool(ContinueEpisodesKey)
	}
	setInt(v, FallbackStatesKey, &c.Session.FallbackStates)
	setInt(v, FallbackActionsKey, &c.Session.FallbackActions)

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}
