// Package ws provides the WebSocket implementation of transport.Conn used to
// talk to a DevTools endpoint.
//
// The connection is always the client side of the handshake: outbound frames
// are masked, pings are answered with pongs, fragmented messages are
// reassembled, and a close frame from the peer surfaces as transport.ErrClosed.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/localrivet/gocdp/transport"
)

const (
	// DefaultWriteTimeout bounds a single frame write when the caller's
	// context carries no deadline.
	DefaultWriteTimeout = 30 * time.Second

	closeFrameTimeout = 2 * time.Second
)

// Options configures Dial.
type Options struct {
	// Header is sent with the upgrade request.
	Header http.Header
	// DialTimeout bounds the TCP connect and handshake. Zero means the
	// context alone decides.
	DialTimeout time.Duration
	// WriteTimeout overrides DefaultWriteTimeout.
	WriteTimeout time.Duration
	// Logger receives debug output about control frames.
	Logger *slog.Logger
}

// Conn is a client-side WebSocket connection.
type Conn struct {
	conn         net.Conn
	rd           *wsutil.Reader
	writeMu      sync.Mutex
	writeTimeout time.Duration
	logger       *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ transport.Conn = (*Conn)(nil)

// Dial performs the WebSocket handshake with url.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, fmt.Errorf("invalid websocket url %q: scheme must be ws or wss", url)
	}

	dialer := ws.Dialer{Timeout: opts.DialTimeout}
	if len(opts.Header) > 0 {
		dialer.Header = ws.HandshakeHeaderHTTP(opts.Header)
	}

	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket %s: %w", url, err)
	}

	// br holds frames the peer sent right behind the handshake response.
	var src io.Reader = conn
	if br != nil {
		src = io.MultiReader(br, conn)
	}
	return newConn(conn, src, opts), nil
}

// NewConn wraps an already upgraded client-side connection.
func NewConn(conn net.Conn, opts Options) *Conn {
	return newConn(conn, conn, opts)
}

func newConn(conn net.Conn, src io.Reader, opts Options) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	c := &Conn{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	c.rd = &wsutil.Reader{
		Source:    src,
		State:     ws.StateClientSide,
		CheckUTF8: true,
		// Control frames interleaved with a fragmented message.
		OnIntermediate: c.controlFrame,
	}
	return c
}

// ReadMessage returns the payload of the next text or binary message.
// Cancelling ctx while a frame is half read leaves the stream unusable; the
// caller is expected to Close the connection afterwards.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, transport.ErrClosed
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = c.conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		if !stop() || hasDeadline {
			_ = c.conn.SetReadDeadline(time.Time{})
		}
	}()

	for {
		hdr, err := c.rd.NextFrame()
		if err != nil {
			return nil, c.readError(ctx, err)
		}

		if hdr.OpCode.IsControl() {
			if err := c.controlFrame(hdr, c.rd); err != nil {
				return nil, c.readError(ctx, err)
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.rd.Discard(); err != nil {
				return nil, c.readError(ctx, err)
			}
			continue
		}

		data, err := io.ReadAll(c.rd)
		if err != nil {
			return nil, c.readError(ctx, err)
		}
		return data, nil
	}
}

// controlFrame answers pings and close frames. The reply is written under
// writeMu so it never splits a data frame.
func (c *Conn) controlFrame(hdr ws.Header, r io.Reader) error {
	c.logger.Debug("websocket control frame", "opcode", hdr.OpCode)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	handler := wsutil.ControlHandler{
		Src:                 r,
		Dst:                 c.conn,
		State:               ws.StateClientSide,
		DisableSrcCiphering: true,
	}
	return handler.Handle(hdr)
}

func (c *Conn) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !c.closed.Load() {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			return context.DeadlineExceeded
		}
	}

	var closedErr wsutil.ClosedError
	if errors.As(err, &closedErr) {
		return fmt.Errorf("%w: peer sent close (code %d, reason %q)", transport.ErrClosed, closedErr.Code, closedErr.Reason)
	}
	if c.closed.Load() || isClosedConnError(err) {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return fmt.Errorf("websocket read: %w", err)
}

// WriteMessage sends data as one masked text frame.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return transport.ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.writeTimeout)
	}
	_ = c.conn.SetWriteDeadline(deadline)
	defer c.conn.SetWriteDeadline(time.Time{})

	if err := wsutil.WriteClientMessage(c.conn, ws.OpText, data); err != nil {
		if c.closed.Load() || isClosedConnError(err) {
			return fmt.Errorf("%w: %v", transport.ErrClosed, err)
		}
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close sends a normal-closure frame when the writer is idle and closes the
// underlying connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		if c.writeMu.TryLock() {
			_ = c.conn.SetWriteDeadline(time.Now().Add(closeFrameTimeout))
			body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
			frame := ws.MaskFrameInPlace(ws.NewCloseFrame(body))
			if err := ws.WriteFrame(c.conn, frame); err != nil {
				c.logger.Debug("failed to write close frame", "error", err)
			}
			c.writeMu.Unlock()
		}

		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func isClosedConnError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "connection reset")
}
