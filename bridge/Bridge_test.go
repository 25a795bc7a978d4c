package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	obs := Observation{State: []float64{1, -2.5, 3e-3}, Reward: 0.75,
		Done: true}

	payload, err := json.Marshal(obs)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(&buf, payload))
	assert.Equal(t, []byte{0, 0, 0, byte(len(payload))}, buf.Bytes()[:4])

	read, err := ReadFrame(&buf)
	require.NoError(t, err)
	decoded, err := DecodeObservation(read, 3)
	require.NoError(t, err)
	assert.Equal(t, obs, decoded)
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))

	read, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, read)
}

func TestReadFrameConnectionClosed(t *testing.T) {
	inputs := map[string][]byte{
		"empty":           {},
		"partial header":  {0, 0},
		"partial payload": {0, 0, 0, 5, '{', '}'},
	}
	for name, input := range inputs {
		_, err := ReadFrame(bytes.NewReader(input))
		assert.ErrorIs(t, err, ErrConnectionClosed, name)

		var malformedErr *MalformedMessageError
		assert.False(t, errors.As(err, &malformedErr), name)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	// The payload is never read, so the error must not be recoverable
	// like a malformed message
	var malformedErr *MalformedMessageError
	assert.False(t, errors.As(err, &malformedErr))
}

func TestActionRoundTrip(t *testing.T) {
	for _, action := range []uint32{0, 1, 4, 1 << 16, math.MaxUint32} {
		var buf bytes.Buffer
		require.NoError(t, WriteAction(&buf, action))
		assert.Equal(t, 4, buf.Len())

		read, err := ReadAction(&buf)
		require.NoError(t, err)
		assert.Equal(t, action, read)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAction(&buf, 3))
	assert.Equal(t, []byte{0, 0, 0, 3}, buf.Bytes())

	_, err := ReadAction(bytes.NewReader([]byte{0, 1}))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDecodeHandshake(t *testing.T) {
	payloads := []string{
		`{"NumStates": "8", "NumActions": "5"}`,
		`{"NumStates": 8, "NumActions": 5}`,
		`{"NumStates": " 8", "NumActions": 5, "Extra": true}`,
	}
	for _, payload := range payloads {
		h, err := DecodeHandshake([]byte(payload))
		require.NoError(t, err, payload)
		assert.Equal(t, Handshake{NumStates: 8, NumActions: 5}, h)
	}
}

func TestDecodeHandshakeMalformed(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"NumActions": "5"}`,
		`{"NumStates": "8"}`,
		`{"NumStates": "eight", "NumActions": "5"}`,
		`{"NumStates": 8.5, "NumActions": 5}`,
		`{"NumStates": 0, "NumActions": 5}`,
		`{"NumStates": null, "NumActions": 5}`,
		`{"NumStates": [8], "NumActions": 5}`,
	}
	for _, payload := range payloads {
		_, err := DecodeHandshake([]byte(payload))
		var malformedErr *MalformedMessageError
		require.ErrorAs(t, err, &malformedErr, payload)
		assert.Equal(t, "handshake", malformedErr.Kind)
	}
}

func TestHandshakeMarshalRoundTrip(t *testing.T) {
	payload, err := json.Marshal(Handshake{NumStates: 4, NumActions: 3})
	require.NoError(t, err)

	h, err := DecodeHandshake(payload)
	require.NoError(t, err)
	assert.Equal(t, Handshake{NumStates: 4, NumActions: 3}, h)
}

func TestDecodeObservationMalformed(t *testing.T) {
	payloads := []string{
		`[]`,
		`{"reward": 1, "done": false}`,
		`{"state": [1, 2], "done": false}`,
		`{"state": [1, 2], "reward": 1}`,
		`{"state": [1, 2, 3], "reward": 1, "done": false}`,
		`{"state": "1, 2", "reward": 1, "done": false}`,
	}
	for _, payload := range payloads {
		_, err := DecodeObservation([]byte(payload), 2)
		var malformedErr *MalformedMessageError
		assert.ErrorAs(t, err, &malformedErr, payload)
	}

	// Without a known length any state is accepted
	obs, err := DecodeObservation(
		[]byte(`{"state": [1, 2, 3], "reward": 0, "done": false}`), 0)
	require.NoError(t, err)
	assert.Len(t, obs.State, 3)
}

func TestClientConn(t *testing.T) {
	agentSide, simSide := net.Pipe()
	defer agentSide.Close()
	defer simSide.Close()

	conn := NewConn(agentSide)
	client := NewClient(simSide)

	done := make(chan error, 1)
	go func() {
		h, err := conn.ReadHandshake()
		if err != nil {
			done <- err
			return
		}
		if err := conn.SendHandshakeAck(NewHandshakeAck(h)); err != nil {
			done <- err
			return
		}

		obs, err := conn.ReadObservation(h.NumStates)
		if err != nil {
			done <- err
			return
		}
		done <- conn.SendAction(len(obs.State) - 1)
	}()

	ack, err := client.Handshake(Handshake{NumStates: 4, NumActions: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, ack.ReceivedStates)
	assert.Equal(t, 3, ack.ReceivedActions)
	assert.NotEmpty(t, ack.Pong)

	action, err := client.Step(Observation{State: []float64{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 3, action)
	require.NoError(t, <-done)
}

func TestConnClosed(t *testing.T) {
	agentSide, simSide := net.Pipe()
	conn := NewConn(agentSide)
	simSide.Close()

	_, err := conn.ReadHandshake()
	assert.ErrorIs(t, err, ErrConnectionClosed)
	agentSide.Close()
}

func TestSendActionNegative(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewConn(&buf).SendAction(-1))
	assert.Equal(t, 0, buf.Len())
}
