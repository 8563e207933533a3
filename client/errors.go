package client

import (
	"errors"
	"fmt"
)

// Standard error values that can be used with errors.Is()
var (
	// ErrConnectionClosed is returned to callers whose command was pending,
	// or who tried to send, after the transport loop ended.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrChannelClosed means a completion slot was closed without a value.
	ErrChannelClosed = errors.New("completion channel closed unexpectedly")
	// ErrSubscriptionClosed is returned by Next after Close.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// TransportError is a connection-level I/O failure.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// SerializationError means a payload could not be encoded as command
// parameters or decoded into the declared response type.
type SerializationError struct {
	Method string
	Err    error
}

// Error implements the error interface
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error for %s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying cause
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ProtocolError is an explicit rejection sent by the peer. Code and Message
// are carried verbatim.
type ProtocolError struct {
	Method  string
	Code    int64
	Message string
	Data    any
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("protocol error (code=%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("protocol error during %s (code=%d): %s", e.Method, e.Code, e.Message)
}

// ConnectionFailedError is a failure to discover or open the connection.
type ConnectionFailedError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface
func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause
func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// IsProtocolError checks if an error is a peer rejection
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// ErrorCode returns the peer's error code if err is a ProtocolError.
func ErrorCode(err error) (int64, bool) {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr.Code, true
	}
	return 0, false
}

// IsConnectionClosed checks if an error reports the end of the connection
func IsConnectionClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed)
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsSerializationError checks if an error is a serialization error
func IsSerializationError(err error) bool {
	var serErr *SerializationError
	return errors.As(err, &serErr)
}

// IsConnectionFailed checks if an error came from bootstrap or dialing
func IsConnectionFailed(err error) bool {
	var connErr *ConnectionFailedError
	return errors.As(err, &connErr)
}
