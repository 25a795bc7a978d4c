// Package cmd implements the command line interface of the training
// server
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.WithField("component", "cmd")

// rootViper represents the configuration shared by every command
var rootViper = viper.New()

var logLevelKey = "log_level"
var logFileKey = "log_file"
var logFormatKey = "log_format"
var configFileKey = "config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dqn",
	Short: "Online DQN training server for the UE5 simulator",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootViper.SetDefault(logLevelKey, logrus.InfoLevel.String())
	_ = rootViper.BindEnv(logLevelKey, "DQN_LOG_LEVEL")
	rootCmd.PersistentFlags().String(
		logLevelKey,
		rootViper.GetString(logLevelKey),
		fmt.Sprintf("Minimum logging level as one of %v", expectedLogLevels),
	)

	_ = rootViper.BindEnv(logFileKey, "DQN_LOG_FILE")
	rootCmd.PersistentFlags().String(
		logFileKey,
		rootViper.GetString(logFileKey),
		"Log file output",
	)

	_ = rootViper.BindEnv(logFormatKey, "DQN_LOG_FORMAT")
	rootCmd.PersistentFlags().String(
		logFormatKey,
		rootViper.GetString(logFormatKey),
		fmt.Sprintf(
			"Log format as one of %v, default is %q, when a log file is specified it is %q",
			expectedLogFormats, text, json,
		),
	)

	_ = rootViper.BindEnv(configFileKey, "DQN_CONFIG")
	rootCmd.PersistentFlags().String(
		configFileKey,
		rootViper.GetString(configFileKey),
		"YAML configuration file, flags and environment variables take precedence",
	)

	// Don't sort alphabetically, keep insertion order
	rootCmd.PersistentFlags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = rootViper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(handshakeCmd)
	rootCmd.AddCommand(plotCmd)
}
