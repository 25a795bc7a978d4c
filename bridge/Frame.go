// Package bridge implements the length-prefixed protocol spoken with
// the simulator. Every message is a 4-byte big-endian length followed
// by a JSON payload of that length, except for actions which are sent
// as a bare 4-byte big-endian integer.
package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// MaxFrameSize is the largest payload accepted by ReadFrame
const MaxFrameSize = 16 << 20

const headerSize = 4

// ReadFrame reads a single length-prefixed payload from r. If r is
// closed before the full frame is read, the returned error wraps
// ErrConnectionClosed.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("readframe: length header: %w", closed(err))
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("readframe: payload of %v bytes exceeds "+
			"%v: %w", size, MaxFrameSize, ErrFrameTooLarge)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("readframe: payload: %w", closed(err))
	}
	return payload, nil
}

// WriteFrame writes payload to w prefixed with its length
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("writeframe: payload of %v bytes exceeds %v",
			len(payload), MaxFrameSize)
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writeframe: %w", closed(err))
	}
	return nil
}

// WriteAction writes an action index to w as 4 raw big-endian bytes
func WriteAction(w io.Writer, action uint32) error {
	var buf [headerSize]byte
	binary.BigEndian.PutUint32(buf[:], action)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("writeaction: %w", closed(err))
	}
	return nil
}

// ReadAction reads an action index written by WriteAction
func ReadAction(r io.Reader) (uint32, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("readaction: %w", closed(err))
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// closed converts errors signalling a closed connection into
// ErrConnectionClosed, keeping the cause in the message
func closed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w (%v)", ErrConnectionClosed, err)
	}
	return err
}
