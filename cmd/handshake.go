package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/bridge"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/config"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/server"
)

// handshakeViper represents the configuration of the handshake command
var handshakeViper = viper.New()

// handshakeCmd represents the handshake command
var handshakeCmd = &cobra.Command{
	Use:          "handshake",
	Short:        "Accept a simulator connection and only perform the handshake",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(_cmd *cobra.Command, _args []string) error {
		err := configureLog(rootViper)
		if err != nil {
			return err
		}

		addr := config.Server{
			Host: handshakeViper.GetString(config.HostKey),
			Port: handshakeViper.GetInt(config.PortKey),
		}.Address()

		ctx := ContextWithUserTermination(context.Background())

		err = server.Serve(ctx, addr, handshake)
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted by user")
			return nil
		}
		return err
	},
}

// handshake performs the handshake on conn and prints the declared
// dimensions
func handshake(_ context.Context, conn net.Conn) error {
	c := bridge.NewConn(conn)

	h, err := c.ReadHandshake()
	if err != nil {
		return err
	}
	if err := c.SendHandshakeAck(bridge.NewHandshakeAck(h)); err != nil {
		return err
	}

	fmt.Printf("NumStates: %v\nNumActions: %v\n", h.NumStates, h.NumActions)
	return nil
}

func init() {
	populateServerFlags(handshakeCmd, handshakeViper)
	bindFlags(handshakeCmd, handshakeViper)
}
