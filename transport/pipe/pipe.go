// Package pipe implements transport.Conn over a pair of byte streams, the
// framing a browser uses when started with --remote-debugging-pipe: each
// message is a JSON document terminated by a single NUL byte.
package pipe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/localrivet/gocdp/logx"
	"github.com/localrivet/gocdp/transport"
)

// Delimiter terminates every frame on the wire.
const Delimiter byte = 0

// Conn carries frames over a reader and a writer. Reading happens on an
// internal goroutine so that ReadMessage can honour its context.
type Conn struct {
	reader  io.Reader
	writer  io.Writer
	writeMu sync.Mutex
	logger  *slog.Logger

	frames  chan []byte
	readErr error
	readEOF chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

var _ transport.Conn = (*Conn)(nil)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger for frame level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Conn reading frames from r and writing frames to w. If r or w
// implement io.Closer they are closed by Close.
func New(r io.Reader, w io.Writer, opts ...Option) *Conn {
	c := &Conn{
		reader:  r,
		writer:  w,
		logger:  logx.Discard(),
		frames:  make(chan []byte),
		readEOF: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.readEOF)

	br := bufio.NewReader(c.reader)
	for {
		frame, err := br.ReadBytes(Delimiter)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(frame) > 0 {
					c.logger.Warn("pipe: discarding unterminated frame at EOF", "bytes", len(frame))
				}
				c.readErr = transport.ErrClosed
			} else {
				c.readErr = fmt.Errorf("%w: %w", transport.ErrClosed, err)
			}
			return
		}
		frame = frame[:len(frame)-1]
		if len(frame) == 0 {
			continue
		}
		select {
		case c.frames <- frame:
		case <-c.closed:
			c.readErr = transport.ErrClosed
			return
		}
	}
}

// ReadMessage returns the next frame without its delimiter.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.frames:
		c.logger.Debug("pipe: received frame", "bytes", len(frame))
		return frame, nil
	case <-c.readEOF:
		return nil, c.readErr
	case <-c.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteMessage writes data followed by the delimiter. A frame containing the
// delimiter is rejected since the peer could not split it correctly.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	if len(data) == 0 {
		return errors.New("pipe: empty frame")
	}
	if bytes.IndexByte(data, Delimiter) >= 0 {
		return errors.New("pipe: frame contains NUL byte")
	}

	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, data...)
	frame = append(frame, Delimiter)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(frame); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return fmt.Errorf("%w: %w", transport.ErrClosed, err)
		}
		return fmt.Errorf("pipe: write frame: %w", err)
	}
	if f, ok := c.writer.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("pipe: flush: %w", err)
		}
	}
	c.logger.Debug("pipe: sent frame", "bytes", len(data))
	return nil
}

// Close closes both streams when they are closable. Pipe closed errors from
// the second stream are ignored since closing one end often closes the other.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if closer, ok := c.writer.(io.Closer); ok {
			if err := closer.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				c.closeErr = err
			}
		}
		if closer, ok := c.reader.(io.Closer); ok {
			if err := closer.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}
