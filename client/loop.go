package client

import (
	"context"
	"fmt"

	"github.com/localrivet/gocdp/protocol"
)

// run is the transport loop. It is the only writer to conn, and processes
// inbound frames one at a time in arrival order.
func (c *Client) run() {
	readCtx, cancelRead := context.WithCancel(context.Background())
	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		c.readLoop(readCtx, inbound, readErr)
	}()

	defer func() {
		if r := recover(); r != nil {
			cancelRead()
			_ = c.conn.Close()
			<-readerDone
			c.abort(r)
		}
	}()

	var cause error
loop:
	for {
		select {
		case data := <-inbound:
			c.handleFrame(data)

		case err := <-readErr:
			cause = &TransportError{Op: "read", Err: err}
			break loop

		case frame := <-c.outbound:
			if err := c.write(frame); err != nil {
				cause = err
				break loop
			}

		case <-c.quit:
			cause = c.flush()
			break loop
		}
	}

	cancelRead()
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("error closing connection", "error", err)
	}
	<-readerDone
	c.finish(cause)
}

// readLoop feeds inbound frames to run until the connection fails.
func (c *Client) readLoop(ctx context.Context, inbound chan<- []byte, readErr chan<- error) {
	for {
		data, err := c.conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				readErr <- err
			}
			return
		}
		select {
		case inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(frame outboundFrame) error {
	c.logger.Debug("sending frame", "id", frame.id, "payload", string(frame.data))
	if err := c.conn.WriteMessage(context.Background(), frame.data); err != nil {
		c.logger.Error("failed to write frame", "id", frame.id, "error", err)
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// flush writes frames queued before Close.
func (c *Client) flush() error {
	for {
		select {
		case frame := <-c.outbound:
			if err := c.write(frame); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// handleFrame routes one inbound frame. Nothing here ends the loop.
func (c *Client) handleFrame(data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		c.logger.Warn("discarding malformed frame", "error", err, "payload", truncate(data))
		c.metrics.frameDiscarded("malformed")
		return
	}

	switch env.Kind {
	case protocol.KindResult:
		r := reply{result: env.Result}
		if env.Error != nil {
			r = reply{err: &ProtocolError{
				Code:    env.Error.Code,
				Message: env.Error.Message,
				Data:    env.Error.Data,
			}}
		}
		if !c.resolve(env.ID, r) {
			c.logger.Warn("discarding reply for unknown request", "id", env.ID)
			c.metrics.frameDiscarded("unknown_id")
		}

	case protocol.KindNotification:
		n := &notification{sessionID: env.SessionID, params: env.Params}
		delivered := c.registry.dispatch(env.Method, n)
		c.logger.Debug("notification dispatched", "event", env.Method, "subscribers", delivered)

	default:
		c.logger.Warn("discarding unrecognized frame", "payload", truncate(data))
		c.metrics.frameDiscarded("unrecognized")
	}
}

func (c *Client) resolve(id uint64, r reply) bool {
	call, ok := c.pending.take(id)
	if !ok {
		return false
	}
	if pe, isProto := r.err.(*ProtocolError); isProto {
		pe.Method = call.method
	}
	call.ch <- r
	return true
}

// finish runs once the loop has stopped: pending commands fail, topics stay
// registered but receive nothing more, and Done is closed.
func (c *Client) finish(cause error) {
	c.closing.Store(true)

	c.errMu.Lock()
	c.err = cause
	c.errMu.Unlock()

	if n := c.pending.sweep(ErrConnectionClosed); n > 0 {
		c.logger.Info("failed pending commands on connection close", "count", n)
	}
	c.registry.terminate()

	if cause != nil {
		c.logger.Warn("transport loop ended", "error", cause)
	} else {
		c.logger.Debug("transport loop ended")
	}
	close(c.done)
}

// abort ends a loop that panicked. Outstanding slots are closed rather than
// answered, so their callers see ErrChannelClosed.
func (c *Client) abort(recovered any) {
	c.closing.Store(true)
	cause := &TransportError{Op: "loop", Err: fmt.Errorf("panic: %v", recovered)}

	c.errMu.Lock()
	c.err = cause
	c.errMu.Unlock()

	n := c.pending.abandon()
	c.registry.terminate()
	c.logger.Error("transport loop panicked", "panic", recovered, "abandoned", n)
	close(c.done)
}

const maxLoggedPayload = 256

func truncate(data []byte) string {
	if len(data) <= maxLoggedPayload {
		return string(data)
	}
	return string(data[:maxLoggedPayload]) + "..."
}
