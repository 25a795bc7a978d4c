package server

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return listener
}

func TestServeHandlesOneConnection(t *testing.T) {
	listener := listen(t)
	addr := listener.Addr().String()

	result := make(chan error, 1)
	go func() {
		result <- ServeListener(context.Background(), listener,
			func(_ context.Context, conn net.Conn) error {
				buf := make([]byte, 4)
				if _, err := io.ReadFull(conn, buf); err != nil {
					return err
				}
				_, err := conn.Write(buf)
				return err
			})
	}()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	require.NoError(t, <-result)

	// The listener is closed after the first connection
	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}

func TestServeHandlerError(t *testing.T) {
	listener := listen(t)
	addr := listener.Addr().String()
	handlerErr := errors.New("handler failed")

	result := make(chan error, 1)
	go func() {
		result <- ServeListener(context.Background(), listener,
			func(context.Context, net.Conn) error { return handlerErr })
	}()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	assert.ErrorIs(t, <-result, handlerErr)
}

func TestServeCancelled(t *testing.T) {
	listener := listen(t)
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- ServeListener(ctx, listener,
			func(context.Context, net.Conn) error { return nil })
	}()

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestServeInvalidAddress(t *testing.T) {
	err := Serve(context.Background(), "127.0.0.1:-1",
		func(context.Context, net.Conn) error { return nil })
	assert.Error(t, err)
}
