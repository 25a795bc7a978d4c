package bridge

import (
	"fmt"
	"io"
)

// Conn is the agent side of a connection to the simulator
type Conn struct {
	rw io.ReadWriter
}

// NewConn returns a new Conn speaking the protocol over rw
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// ReadHandshake reads and decodes the handshake message
func (c *Conn) ReadHandshake() (Handshake, error) {
	payload, err := ReadFrame(c.rw)
	if err != nil {
		return Handshake{}, fmt.Errorf("readhandshake: %w", err)
	}

	h, err := DecodeHandshake(payload)
	if err != nil {
		return Handshake{}, fmt.Errorf("readhandshake: %w", err)
	}
	return h, nil
}

// SendHandshakeAck acknowledges a handshake
func (c *Conn) SendHandshakeAck(ack HandshakeAck) error {
	payload, err := encode("handshake ack", ack)
	if err != nil {
		return fmt.Errorf("sendhandshakeack: %w", err)
	}
	if err := WriteFrame(c.rw, payload); err != nil {
		return fmt.Errorf("sendhandshakeack: %w", err)
	}
	return nil
}

// ReadObservation reads and decodes an observation whose state has
// features values. If features is not positive, the state length is
// not checked.
func (c *Conn) ReadObservation(features int) (Observation, error) {
	payload, err := ReadFrame(c.rw)
	if err != nil {
		return Observation{}, fmt.Errorf("readobservation: %w", err)
	}

	obs, err := DecodeObservation(payload, features)
	if err != nil {
		return Observation{}, fmt.Errorf("readobservation: %w", err)
	}
	return obs, nil
}

// SendAction sends an action index in response to an observation
func (c *Conn) SendAction(action int) error {
	if action < 0 {
		return fmt.Errorf("sendaction: negative action %v", action)
	}
	if err := WriteAction(c.rw, uint32(action)); err != nil {
		return fmt.Errorf("sendaction: %w", err)
	}
	return nil
}
