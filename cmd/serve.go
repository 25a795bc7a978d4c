package cmd

import (
	"context"
	"errors"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/server"
)

// serveViper represents the configuration of the serve command
var serveViper = viper.New()

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Accept a simulator connection and train the agent on it",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(_cmd *cobra.Command, _args []string) error {
		c, err := loadConfig(serveViper)
		if err != nil {
			return err
		}

		store, err := c.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessionConfig, err := c.Experiment(store)
		if err != nil {
			return err
		}

		ctx := ContextWithUserTermination(context.Background())

		err = server.Serve(ctx, c.Server.Address(),
			func(ctx context.Context, conn net.Conn) error {
				session, err := experiment.NewOnline(conn, sessionConfig)
				if err != nil {
					return err
				}
				return session.Run(ctx)
			})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("interrupted by user")
				return nil
			}
			return err
		}
		log.Info("session finished")
		return nil
	},
}

func init() {
	populateConfigFlags(serveCmd, serveViper)
	bindFlags(serveCmd, serveViper)
}
