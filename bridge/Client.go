package bridge

import (
	"fmt"
	"io"
)

// Client is the simulator side of a connection to the agent
type Client struct {
	rw io.ReadWriter
}

// NewClient returns a new Client speaking the protocol over rw
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// Handshake sends a handshake declaring the observation length and
// number of actions, then waits for its acknowledgement
func (c *Client) Handshake(h Handshake) (HandshakeAck, error) {
	if err := c.SendRaw(h); err != nil {
		return HandshakeAck{}, fmt.Errorf("handshake: %w", err)
	}

	payload, err := ReadFrame(c.rw)
	if err != nil {
		return HandshakeAck{}, fmt.Errorf("handshake: %w", err)
	}

	ack, err := DecodeHandshakeAck(payload)
	if err != nil {
		return HandshakeAck{}, fmt.Errorf("handshake: %w", err)
	}
	return ack, nil
}

// Step sends an observation and waits for the agent's action
func (c *Client) Step(obs Observation) (int, error) {
	if err := c.SendRaw(obs); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	action, err := ReadAction(c.rw)
	if err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	return int(action), nil
}

// SendRaw JSON encodes v and sends it as a single frame without
// waiting for a response
func (c *Client) SendRaw(v interface{}) error {
	payload, err := encode("message", v)
	if err != nil {
		return fmt.Errorf("sendraw: %w", err)
	}
	if err := WriteFrame(c.rw, payload); err != nil {
		return fmt.Errorf("sendraw: %w", err)
	}
	return nil
}
