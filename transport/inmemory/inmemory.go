// Package inmemory provides a channel-backed transport.Conn and the Peer that
// sits on the other end of it. The Peer plays the role of a browser: it reads
// the client's command frames and writes replies and notifications back.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/localrivet/gocdp/protocol"
	"github.com/localrivet/gocdp/transport"
)

// DefaultBuffer is the number of frames each direction can hold before a
// writer blocks.
const DefaultBuffer = 256

// RequestHandler answers one command on behalf of the Peer. Returning a
// non-nil ErrorPayload sends an error reply instead of result.
type RequestHandler func(req *protocol.Request) (result any, rpcErr *protocol.ErrorPayload)

type pipe struct {
	toClient chan []byte
	toPeer   chan []byte

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (p *pipe) shutdown(err error) {
	p.closeOnce.Do(func() {
		p.closeErr = err
		close(p.closed)
	})
}

// Pipe returns a connected Conn and Peer pair.
func Pipe() (*Conn, *Peer) {
	return PipeSize(DefaultBuffer)
}

// PipeSize is Pipe with an explicit per-direction buffer.
func PipeSize(buffer int) (*Conn, *Peer) {
	p := &pipe{
		toClient: make(chan []byte, buffer),
		toPeer:   make(chan []byte, buffer),
		closed:   make(chan struct{}),
	}
	return &Conn{p: p}, &Peer{p: p}
}

// Conn is the client side of an in-memory pipe.
type Conn struct {
	p *pipe
}

var _ transport.Conn = (*Conn)(nil)

// ReadMessage returns the next frame written by the Peer. Frames already
// queued when the pipe closes are still delivered.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.p.toClient:
		return msg, nil
	default:
	}

	select {
	case msg := <-c.p.toClient:
		return msg, nil
	case <-c.p.closed:
		select {
		case msg := <-c.p.toClient:
			return msg, nil
		default:
			return nil, c.p.closeErr
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteMessage hands a copy of data to the Peer.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	select {
	case <-c.p.closed:
		return c.p.closeErr
	default:
	}

	frame := make([]byte, len(data))
	copy(frame, data)

	select {
	case c.p.toPeer <- frame:
		return nil
	case <-c.p.closed:
		return c.p.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the pipe for both sides.
func (c *Conn) Close() error {
	c.p.shutdown(transport.ErrClosed)
	return nil
}

// Peer is the remote side of an in-memory pipe.
type Peer struct {
	p *pipe
}

// Send writes a raw frame to the client.
func (p *Peer) Send(frame []byte) error {
	select {
	case <-p.p.closed:
		return p.p.closeErr
	default:
	}
	select {
	case p.p.toClient <- frame:
		return nil
	case <-p.p.closed:
		return p.p.closeErr
	}
}

// SendJSON marshals v and writes it as one frame.
func (p *Peer) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return p.Send(data)
}

// Reply sends a success reply for id.
func (p *Peer) Reply(id uint64, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return p.SendJSON(map[string]any{"id": id, "result": json.RawMessage(raw)})
}

// ReplyError sends an error reply for id.
func (p *Peer) ReplyError(id uint64, code int64, message string) error {
	return p.SendJSON(map[string]any{
		"id":    id,
		"error": protocol.ErrorPayload{Code: code, Message: message},
	})
}

// Notify sends a notification. An empty sessionID omits the field.
func (p *Peer) Notify(method string, params any, sessionID string) error {
	frame := map[string]any{"method": method, "params": params}
	if sessionID != "" {
		frame["sessionId"] = sessionID
	}
	return p.SendJSON(frame)
}

// Receive returns the next raw frame written by the client.
func (p *Peer) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.p.toPeer:
		return msg, nil
	case <-p.p.closed:
		return nil, p.p.closeErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReceiveRequest reads the next frame and decodes it as a command request.
func (p *Peer) ReceiveRequest(ctx context.Context) (*protocol.Request, error) {
	data, err := p.Receive(ctx)
	if err != nil {
		return nil, err
	}
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request %s: %w", data, err)
	}
	return &req, nil
}

// Serve answers requests with handler until ctx ends or the pipe closes.
func (p *Peer) Serve(ctx context.Context, handler RequestHandler) error {
	for {
		req, err := p.ReceiveRequest(ctx)
		if err != nil {
			return err
		}
		result, rpcErr := handler(req)
		if rpcErr != nil {
			err = p.ReplyError(req.ID, rpcErr.Code, rpcErr.Message)
		} else {
			err = p.Reply(req.ID, result)
		}
		if err != nil {
			return err
		}
	}
}

// Close closes the pipe as a clean peer shutdown.
func (p *Peer) Close() {
	p.p.shutdown(transport.ErrClosed)
}

// Fail closes the pipe so that the client observes err, simulating a reset
// or other I/O failure.
func (p *Peer) Fail(err error) {
	p.p.shutdown(err)
}

// Done is closed once either side has closed the pipe.
func (p *Peer) Done() <-chan struct{} {
	return p.p.closed
}
