package bridge

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned when the connection closes before a
// complete message could be read
var ErrConnectionClosed = errors.New("connection closed")

// ErrFrameTooLarge is returned when a length header announces a payload
// larger than MaxFrameSize. The payload is left unread, so the stream
// can no longer be split into frames.
var ErrFrameTooLarge = errors.New("frame too large")

// MalformedMessageError is returned when a complete message was read
// but its payload does not match the schema of the expected message
type MalformedMessageError struct {
	Kind string // Kind of message that was expected
	Err  error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed %v message: %v", e.Kind, e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

func malformed(kind, format string, args ...interface{}) error {
	return &MalformedMessageError{Kind: kind, Err: fmt.Errorf(format, args...)}
}
