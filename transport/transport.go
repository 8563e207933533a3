// Package transport defines the connection abstraction the client runtime
// drives. Implementations carry whole text frames; framing, control frames
// and masking are their concern.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by ReadMessage and WriteMessage once the connection
// has been closed by either side.
var ErrClosed = errors.New("transport: connection closed")

// Conn is one persistent duplex connection carrying JSON text frames.
//
// ReadMessage is called from a single goroutine. WriteMessage may be called
// concurrently and must never interleave two frames. Close unblocks a pending
// ReadMessage and is safe to call more than once.
type Conn interface {
	// ReadMessage blocks until the next complete data frame arrives.
	ReadMessage(ctx context.Context) ([]byte, error)

	// WriteMessage sends data as a single text frame.
	WriteMessage(ctx context.Context, data []byte) error

	// Close terminates the connection.
	Close() error
}

// DialFunc opens a Conn to a websocket endpoint URL.
type DialFunc func(ctx context.Context, url string) (Conn, error)
