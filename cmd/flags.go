package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/config"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/initwfn"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
)

func envName(key string) string {
	return "DQN_" + strings.ToUpper(key)
}

func stringFlag(cmd *cobra.Command, v *viper.Viper, key, value,
	usage string) {
	v.SetDefault(key, value)
	_ = v.BindEnv(key, envName(key))
	cmd.Flags().String(key, v.GetString(key), usage)
}

func intFlag(cmd *cobra.Command, v *viper.Viper, key string, value int,
	usage string) {
	v.SetDefault(key, value)
	_ = v.BindEnv(key, envName(key))
	cmd.Flags().Int(key, v.GetInt(key), usage)
}

func floatFlag(cmd *cobra.Command, v *viper.Viper, key string,
	value float64, usage string) {
	v.SetDefault(key, value)
	_ = v.BindEnv(key, envName(key))
	cmd.Flags().Float64(key, v.GetFloat64(key), usage)
}

func populateServerFlags(cmd *cobra.Command, v *viper.Viper) {
	d := config.Default().Server
	stringFlag(cmd, v, config.HostKey, d.Host, "Host to listen on")
	intFlag(cmd, v, config.PortKey, d.Port, "Port to listen on")
}

func populateStorageFlags(cmd *cobra.Command, v *viper.Viper) {
	d := config.Default().Storage
	stringFlag(cmd, v, config.RewardLogKey, d.RewardLog,
		"File episodic returns are appended to")
	stringFlag(cmd, v, config.PlotKey, d.Plot,
		"PNG file the reward curve is drawn to, empty to disable")
}

// populateConfigFlags registers a flag and an environment variable for
// every key of the configuration
func populateConfigFlags(cmd *cobra.Command, v *viper.Viper) {
	populateServerFlags(cmd, v)

	d := config.Default().Agent
	floatFlag(cmd, v, config.LearningRateKey, d.LearningRate,
		"Learning rate of the solver")
	floatFlag(cmd, v, config.GammaKey, d.Gamma, "Discount factor")
	floatFlag(cmd, v, config.EpsStartKey, d.EpsStart,
		"Initial exploration probability")
	floatFlag(cmd, v, config.EpsFinalKey, d.EpsFinal,
		"Final exploration probability")
	intFlag(cmd, v, config.EpsDecayKey, d.EpsDecay,
		"Number of learning steps over which exploration decays")
	intFlag(cmd, v, config.CapacityKey, d.Capacity,
		"Maximum number of transitions in the replay buffer")
	intFlag(cmd, v, config.BatchSizeKey, d.BatchSize,
		"Number of transitions sampled per learning step")
	intFlag(cmd, v, config.TargetTauKey, d.TargetTau,
		"Number of learning steps between target network updates")
	stringFlag(cmd, v, config.HiddenKey, config.FormatHidden(d.Hidden),
		"Comma separated hidden layer sizes")
	stringFlag(cmd, v, config.ActivationKey, d.Activation,
		"Activation of the hidden layers as one of [relu tanh identity]")
	stringFlag(cmd, v, config.InitWFnKey, string(d.InitWFn),
		fmt.Sprintf("Weight initialization as one of %v", initwfn.Types()))
	floatFlag(cmd, v, config.InitGainKey, d.InitGain,
		"Gain of the weight initialization")
	stringFlag(cmd, v, config.SolverKey, string(d.Solver),
		fmt.Sprintf("Solver as one of %v", []solver.Type{solver.Adam,
			solver.Vanilla}))
	floatFlag(cmd, v, config.ClipNormKey, d.ClipNorm,
		"Maximum global gradient norm, 0 to disable clipping")
	v.SetDefault(config.SeedKey, d.Seed)
	_ = v.BindEnv(config.SeedKey, envName(config.SeedKey))
	cmd.Flags().Uint64(config.SeedKey, v.GetUint64(config.SeedKey),
		"Seed of the weight initialization, replay sampling and exploration")

	s := config.Default().Storage
	stringFlag(cmd, v, config.BackendKey, string(s.Backend),
		fmt.Sprintf("Checkpoint backend as one of %v",
			[]checkpointer.Backend{checkpointer.File, checkpointer.Bolt}))
	stringFlag(cmd, v, config.CheckpointKey, s.Checkpoint,
		"Checkpoint location")
	populateStorageFlags(cmd, v)

	e := config.Default().Session
	v.SetDefault(config.ContinueEpisodesKey, e.ContinueEpisodes)
	_ = v.BindEnv(config.ContinueEpisodesKey,
		envName(config.ContinueEpisodesKey))
	cmd.Flags().Bool(config.ContinueEpisodesKey,
		v.GetBool(config.ContinueEpisodesKey),
		"Keep training on the same connection after an episode ends")
	intFlag(cmd, v, config.FallbackStatesKey, e.FallbackStates,
		"Observation length used when the handshake is malformed")
	intFlag(cmd, v, config.FallbackActionsKey, e.FallbackActions,
		"Number of actions used when the handshake is malformed")
}

// bindFlags binds the flags of cmd with v
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	// Don't sort alphabetically, keep insertion order
	cmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = v.BindPFlags(cmd.Flags())
}

// loadConfig configures logging, reads the configuration file if one
// is given and returns the configuration held by v
func loadConfig(v *viper.Viper) (config.Config, error) {
	if err := configureLog(rootViper); err != nil {
		return config.Config{}, err
	}

	if path := rootViper.GetString(configFileKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("unable to read "+
				"configuration file %q: %w", path, err)
		}
		log.WithField("path", path).Info("configuration file loaded")
	}

	c, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}

	log.WithFields(logrus.Fields{
		"address":    c.Server.Address(),
		"lr":         c.Agent.LearningRate,
		"gamma":      c.Agent.Gamma,
		"batch_size": c.Agent.BatchSize,
		"capacity":   c.Agent.Capacity,
		"target_tau": c.Agent.TargetTau,
		"backend":    c.Storage.Backend,
		"checkpoint": c.Storage.Checkpoint,
	}).Debug("configuration loaded")
	return c, nil
}
