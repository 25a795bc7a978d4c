// Package server accepts the simulator's connection
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "server")

// Handler handles an accepted connection. The connection is closed
// once the Handler returns.
type Handler func(ctx context.Context, conn net.Conn) error

// Serve listens on addr, accepts exactly one connection and handles it
func Serve(ctx context.Context, addr string, handle Handler) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: unable to listen on %q: %w", addr, err)
	}
	return ServeListener(ctx, listener, handle)
}

// ServeListener accepts exactly one connection from listener and
// handles it. The listener is closed as soon as a connection is
// accepted or ctx is done.
func ServeListener(ctx context.Context, listener net.Listener,
	handle Handler) error {
	log.WithField("address", listener.Addr().String()).Info("server listening")

	group, ctx := errgroup.WithContext(ctx)
	accepted := make(chan struct{})

	group.Go(func() error {
		select {
		case <-ctx.Done():
		case <-accepted:
		}
		_ = listener.Close()
		return nil
	})

	group.Go(func() error {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("serve: unable to accept connection: %w", err)
		}
		close(accepted)
		defer conn.Close()

		log.WithField("remote", conn.RemoteAddr().String()).Info(
			"connection accepted")
		return handle(ctx, conn)
	})

	return group.Wait()
}
