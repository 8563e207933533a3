// Package client is the DevTools session runtime: one transport loop owning
// the connection, a correlation table matching replies to commands, and a
// topic registry fanning notifications out to subscribers.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/localrivet/gocdp/protocol"
	"github.com/localrivet/gocdp/transport"
)

// Client is a handle to one live connection. It is safe for concurrent use.
type Client struct {
	id     string
	conn   transport.Conn
	logger *slog.Logger

	nextID   atomic.Uint64
	pending  *pendingTable
	registry *registry

	outbound chan outboundFrame
	quit     chan struct{}
	done     chan struct{}

	closing   atomic.Bool
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error

	requestTimeout time.Duration
	limiter        *rate.Limiter
	metrics        *metrics
	tracer         trace.Tracer
}

type outboundFrame struct {
	id   uint64
	data []byte
}

// New starts a client over an open connection. The client owns conn from
// here on and closes it when the transport loop ends.
func New(conn transport.Conn, opts ...Option) *Client {
	return newClient(conn, newOptions(opts))
}

func newClient(conn transport.Conn, o *options) *Client {
	id := uuid.NewString()
	logger := o.logger.With("connection_id", id)
	m := newMetrics(o.registerer, logger)

	c := &Client{
		id:             id,
		conn:           conn,
		logger:         logger,
		pending:        newPendingTable(m),
		registry:       newRegistry(o.eventBuffer, logger, m),
		outbound:       make(chan outboundFrame, o.outboundQueue),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		requestTimeout: o.requestTimeout,
		limiter:        o.limiter,
		metrics:        m,
		tracer:         newTracer(o.tracerProvider),
	}

	go c.run()
	logger.Debug("client started")
	return c
}

// ID returns the connection id used in logs and spans.
func (c *Client) ID() string {
	return c.id
}

// Done is closed when the transport loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the transport loop ended: nil while it runs and after a
// clean Close, a *TransportError otherwise. A loop that panicked reports
// Op "loop".
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close stops accepting commands, flushes frames already queued, closes the
// connection and waits for the loop to exit. Commands still waiting for a
// reply fail with ErrConnectionClosed. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.quit)
	})
	<-c.done
	return nil
}

// Pending returns the number of commands awaiting a reply.
func (c *Client) Pending() int {
	return c.pending.size()
}

// call sends one request frame and waits for its reply payload.
func (c *Client) call(ctx context.Context, method string, params any, sessionID string) (json.RawMessage, error) {
	if c.closing.Load() {
		return nil, ErrConnectionClosed
	}
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	if _, ok := ctx.Deadline(); !ok && c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	id := c.nextID.Add(1)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64(attrRequestID, int64(id)))

	req, err := protocol.NewRequest(id, method, params, sessionID)
	if err != nil {
		return nil, &SerializationError{Method: method, Err: err}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &SerializationError{Method: method, Err: err}
	}

	// Registered before the frame can reach the wire.
	call, err := c.pending.register(id, method)
	if err != nil {
		return nil, err
	}

	select {
	case c.outbound <- outboundFrame{id: id, data: data}:
	case <-c.done:
		c.pending.take(id)
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		c.pending.take(id)
		return nil, ctx.Err()
	}

	select {
	case r, ok := <-call.ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return r.result, r.err
	case <-ctx.Done():
		if _, ok := c.pending.take(id); !ok {
			// Resolved concurrently; the reply is already in the slot.
			r, ok := <-call.ch
			if !ok {
				return nil, ErrChannelClosed
			}
			return r.result, r.err
		}
		c.logger.Debug("command abandoned", "id", id, "method", method, "error", ctx.Err())
		return nil, ctx.Err()
	}
}
