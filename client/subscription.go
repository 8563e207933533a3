package client

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"runtime"
	"sync"

	"github.com/localrivet/gocdp/protocol"
)

// Subscription yields notifications for one topic in arrival order. Only
// notifications dispatched after the subscription was created are seen.
type Subscription[E any] struct {
	topic   string
	conduit *conduit
	logger  *slog.Logger
	metrics *metrics

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Subscribe opens a subscription to the topic named by E's zero value.
func Subscribe[E Event](c *Client, opts ...SubscribeOption) *Subscription[E] {
	var zero E
	return subscribe[E](c, zero.EventName(), opts)
}

// SubscribeTopic opens an untyped subscription to topic.
func SubscribeTopic(c *Client, topic string, opts ...SubscribeOption) *Subscription[json.RawMessage] {
	return subscribe[json.RawMessage](c, topic, opts)
}

func subscribe[E any](c *Client, topic string, opts []SubscribeOption) *Subscription[E] {
	so := &subscribeOptions{}
	for _, opt := range opts {
		opt(so)
	}
	s := &Subscription[E]{
		topic:   topic,
		conduit: c.registry.subscribe(topic, so.sessionID),
		logger:  c.logger,
		metrics: c.metrics,
	}
	// A subscription dropped without Close still leaves its topic.
	runtime.AddCleanup(s, (*conduit).close, s.conduit)
	return s
}

// Topic returns the wire event name.
func (s *Subscription[E]) Topic() string {
	return s.topic
}

// Next returns the next event. Payloads that do not decode as E are logged
// and skipped. After the connection ends, queued events are still returned
// and then Next fails with ErrConnectionClosed.
func (s *Subscription[E]) Next(ctx context.Context) (E, error) {
	for {
		n, err := s.conduit.next(ctx)
		if err != nil {
			var zero E
			return zero, err
		}

		ev, err := decodeEvent[E](n.params)
		if err != nil {
			s.logger.Warn("skipping undecodable event",
				"event", s.topic,
				"error", err)
			s.metrics.eventDropped(s.topic, "decode")
			continue
		}
		return ev, nil
	}
}

// Events returns an iterator over the subscription. The sequence ends when
// ctx ends, the connection ends, or the loop body breaks; the subscription is
// closed in every case. Err reports why it ended.
func (s *Subscription[E]) Events(ctx context.Context) iter.Seq[E] {
	return func(yield func(E) bool) {
		defer s.Close()
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				s.setErr(err)
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Err returns the error that ended Events, if any.
func (s *Subscription[E]) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Subscription[E]) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Close releases the subscription. It is removed from its topic on the next
// delivery attempt. An unreachable subscription is released the same way
// once the garbage collector finds it, but Close frees it deterministically.
func (s *Subscription[E]) Close() {
	s.closeOnce.Do(s.conduit.close)
}

func decodeEvent[E any](raw json.RawMessage) (E, error) {
	var ev E
	if p, ok := any(&ev).(*json.RawMessage); ok {
		*p = raw
		return ev, nil
	}
	if protocol.IsEmpty(raw) {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		var zero E
		return zero, err
	}
	return ev, nil
}
