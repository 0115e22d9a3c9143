package seestar

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamEnded indicates the telescope closed the connection. It is
	// equivalent to a disconnect, not a transient failure.
	ErrStreamEnded = errors.New("stream ended")

	// ErrNotConnected indicates an operation was attempted without a connection
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on a connected client
	ErrAlreadyConnected = errors.New("already connected")

	// ErrTimeout indicates a command timed out waiting for its response
	ErrTimeout = errors.New("command timed out")

	// ErrDuplicateID indicates a request reused an id that is still awaiting
	// its response
	ErrDuplicateID = errors.New("request id already in flight")

	// ErrUnknownMethod indicates a method tag outside the command catalog
	ErrUnknownMethod = errors.New("unknown method")
)

// ConnectionError represents a failure to open or use the TCP transport.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("connection failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

func newConnectionError(message string, cause error) error {
	return &ConnectionError{Message: message, Cause: cause}
}

// DecodeError reports an inbound line that could not be decoded.
// Event is true when the line carried the event discriminator; such
// failures are logged and skipped by the client.
type DecodeError struct {
	Line   string
	Reason string
	Event  bool
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// CommandError is returned by Execute when the telescope answers with a
// non-zero code.
type CommandError struct {
	Method  string
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed with code %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s failed with code %d", e.Method, e.Code)
}
