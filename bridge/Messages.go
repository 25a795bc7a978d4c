package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Handshake is the first message sent by the simulator, declaring the
// length of observation vectors and the number of actions
type Handshake struct {
	NumStates  int
	NumActions int
}

// handshakeWire accepts counts sent either as JSON numbers or as
// numeric strings
type handshakeWire struct {
	NumStates  json.RawMessage `json:"NumStates"`
	NumActions json.RawMessage `json:"NumActions"`
}

// MarshalJSON implements the json.Marshaler interface. Counts are sent
// as strings, the way the simulator sends them.
func (h Handshake) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"NumStates":  strconv.Itoa(h.NumStates),
		"NumActions": strconv.Itoa(h.NumActions),
	})
}

// DecodeHandshake decodes and validates a handshake payload
func DecodeHandshake(payload []byte) (Handshake, error) {
	var wire handshakeWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Handshake{}, malformed("handshake", "%v", err)
	}

	states, err := parseCount("NumStates", wire.NumStates)
	if err != nil {
		return Handshake{}, err
	}
	actions, err := parseCount("NumActions", wire.NumActions)
	if err != nil {
		return Handshake{}, err
	}

	return Handshake{NumStates: states, NumActions: actions}, nil
}

// parseCount parses a positive count given as a JSON number or string
func parseCount(field string, raw json.RawMessage) (int, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, malformed("handshake", "missing field %v", field)
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, malformed("handshake", "field %v: %v", field, err)
		}
	}

	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, malformed("handshake", "field %v is not an integer: %v",
			field, string(raw))
	}
	if count < 1 {
		return 0, malformed("handshake", "field %v must be positive: %v",
			field, count)
	}
	return count, nil
}

// HandshakeAck acknowledges a Handshake, echoing the received counts
type HandshakeAck struct {
	Pong            string `json:"pong"`
	ReceivedStates  int    `json:"received_states"`
	ReceivedActions int    `json:"received_actions"`
}

// NewHandshakeAck returns the acknowledgement of h
func NewHandshakeAck(h Handshake) HandshakeAck {
	return HandshakeAck{
		Pong:            "hello from Go Server",
		ReceivedStates:  h.NumStates,
		ReceivedActions: h.NumActions,
	}
}

// DecodeHandshakeAck decodes a handshake acknowledgement payload
func DecodeHandshakeAck(payload []byte) (HandshakeAck, error) {
	var ack HandshakeAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		return HandshakeAck{}, malformed("handshake ack", "%v", err)
	}
	return ack, nil
}

// Observation is sent by the simulator on every step
type Observation struct {
	State  []float64 `json:"state"`
	Reward float64   `json:"reward"`
	Done   bool      `json:"done"`
}

// observationWire detects fields missing from an observation
type observationWire struct {
	State  *[]float64 `json:"state"`
	Reward *float64   `json:"reward"`
	Done   *bool      `json:"done"`
}

// DecodeObservation decodes and validates an observation payload. If
// features is positive, the state must have exactly features values.
func DecodeObservation(payload []byte, features int) (Observation, error) {
	var wire observationWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Observation{}, malformed("observation", "%v", err)
	}

	switch {
	case wire.State == nil:
		return Observation{}, malformed("observation", "missing field state")
	case wire.Reward == nil:
		return Observation{}, malformed("observation", "missing field reward")
	case wire.Done == nil:
		return Observation{}, malformed("observation", "missing field done")
	}

	if features > 0 && len(*wire.State) != features {
		return Observation{}, malformed("observation",
			"state has %v values\n\twant(%v)", len(*wire.State), features)
	}

	return Observation{
		State:  *wire.State,
		Reward: *wire.Reward,
		Done:   *wire.Done,
	}, nil
}

func encode(kind string, v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode %v: %w", kind, err)
	}
	return payload, nil
}
