package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// notification is shared by every conduit a frame is delivered to. Params
// points into the original frame and is never modified.
type notification struct {
	sessionID string
	params    json.RawMessage
}

type deliveryResult int

const (
	delivered deliveryResult = iota
	filtered
	bufferFull
	receiverGone
)

// conduit is one subscriber's queue. limit zero means unbounded.
type conduit struct {
	sessionID string
	limit     int

	mu         sync.Mutex
	queue      []*notification
	gone       bool
	terminated bool
	signal     chan struct{}
}

func newConduit(limit int, sessionID string) *conduit {
	return &conduit{
		limit:     limit,
		sessionID: sessionID,
		signal:    make(chan struct{}, 1),
	}
}

// deliver enqueues n without blocking.
func (c *conduit) deliver(n *notification) deliveryResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gone {
		return receiverGone
	}
	if c.sessionID != "" && n.sessionID != c.sessionID {
		return filtered
	}
	if c.limit > 0 && len(c.queue) >= c.limit {
		return bufferFull
	}
	c.queue = append(c.queue, n)
	c.notify()
	return delivered
}

// next pops the oldest queued notification, waiting for one if needed.
// Queued notifications are still returned after terminate.
func (c *conduit) next(ctx context.Context) (*notification, error) {
	for {
		c.mu.Lock()
		switch {
		case c.gone:
			c.mu.Unlock()
			return nil, ErrSubscriptionClosed
		case len(c.queue) > 0:
			n := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return n, nil
		case c.terminated:
			c.mu.Unlock()
			return nil, ErrConnectionClosed
		}
		c.mu.Unlock()

		select {
		case <-c.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close marks the receiving side as gone. The registry prunes the conduit on
// its next delivery attempt.
func (c *conduit) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = true
	c.queue = nil
	c.notify()
}

func (c *conduit) terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminated = true
	c.notify()
}

func (c *conduit) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// registry maps topics to subscriber conduits.
type registry struct {
	mu         sync.Mutex
	topics     map[string][]*conduit
	terminated bool

	buffer  int
	logger  *slog.Logger
	metrics *metrics
}

func newRegistry(buffer int, logger *slog.Logger, m *metrics) *registry {
	return &registry{
		topics:  make(map[string][]*conduit),
		buffer:  buffer,
		logger:  logger,
		metrics: m,
	}
}

// subscribe adds a conduit under topic, creating the topic if needed. A
// conduit added after termination reports ErrConnectionClosed straight away.
func (r *registry) subscribe(topic, sessionID string) *conduit {
	c := newConduit(r.buffer, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminated {
		c.terminated = true
	}
	r.topics[topic] = append(r.topics[topic], c)
	return c
}

// dispatch hands n to every conduit currently under topic and returns how
// many accepted it. Conduits whose receiver is gone are removed.
func (r *registry) dispatch(topic string, n *notification) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	conduits := r.topics[topic]
	if len(conduits) == 0 {
		return 0
	}

	count := 0
	live := conduits[:0]
	for _, c := range conduits {
		switch c.deliver(n) {
		case delivered:
			count++
		case bufferFull:
			r.logger.Warn("subscriber buffer full, dropping notification",
				"event", topic,
				"buffer", r.buffer)
			r.metrics.eventDropped(topic, "buffer_full")
		case receiverGone:
			r.logger.Debug("removing closed subscriber", "event", topic)
			continue
		}
		live = append(live, c)
	}
	for i := len(live); i < len(conduits); i++ {
		conduits[i] = nil
	}

	if len(live) == 0 {
		delete(r.topics, topic)
	} else {
		r.topics[topic] = live
	}
	r.metrics.eventDispatched(topic, count)
	return count
}

// terminate leaves every topic registered but wakes all subscribers so they
// can drain and observe ErrConnectionClosed.
func (r *registry) terminate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.terminated = true
	for _, conduits := range r.topics {
		for _, c := range conduits {
			c.terminate()
		}
	}
}

func (r *registry) subscribers(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}
