package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/config"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/plot"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/tracker"
)

// plotViper represents the configuration of the plot command
var plotViper = viper.New()

// plotCmd represents the plot command
var plotCmd = &cobra.Command{
	Use:          "plot",
	Short:        "Draw the reward curve of every episode in the reward log",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(_cmd *cobra.Command, _args []string) error {
		err := configureLog(rootViper)
		if err != nil {
			return err
		}

		return plotRewards(
			plotViper.GetString(config.RewardLogKey),
			plotViper.GetString(config.PlotKey),
		)
	},
}

func plotRewards(rewardLog, path string) error {
	rewards, err := tracker.LoadData(rewardLog)
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		log.WithField("path", rewardLog).Warn("no rewards to plot")
		return nil
	}
	return plot.Render(path, rewards)
}

func init() {
	populateStorageFlags(plotCmd, plotViper)
	bindFlags(plotCmd, plotViper)
}
