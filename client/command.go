package client

import (
	"context"
	"encoding/json"

	"github.com/localrivet/gocdp/protocol"
)

// Command is a typed command. The value itself is marshalled as the
// command's params; Response ties it to the type its result decodes into.
type Command[R any] interface {
	Method() string
	Response() R
}

// Event is a typed notification payload. EventName must work on the zero
// value, since it names the topic before any event arrives.
type Event interface {
	EventName() string
}

// RawCommand is an untyped command whose params are already encoded.
type RawCommand struct {
	Name   string
	Params json.RawMessage
}

// Method implements Command.
func (c RawCommand) Method() string { return c.Name }

// Response implements Command.
func (c RawCommand) Response() json.RawMessage { return nil }

// MarshalJSON encodes the command as its params.
func (c RawCommand) MarshalJSON() ([]byte, error) {
	if protocol.IsEmpty(c.Params) {
		return []byte(`{}`), nil
	}
	return c.Params, nil
}

// Send issues cmd and waits for its reply. A protocol rejection comes back
// as *ProtocolError and a result that does not fit R as *SerializationError.
// An absent, null or empty result yields the zero R.
//
// If ctx ends first, the pending entry is dropped and ctx.Err() is returned;
// a reply that arrives afterwards is discarded.
func Send[R any](ctx context.Context, c *Client, cmd Command[R], opts ...SendOption) (resp R, err error) {
	so := &sendOptions{}
	for _, opt := range opts {
		opt(so)
	}

	method := cmd.Method()
	ctx, span := c.startSpan(ctx, method, so.sessionID)
	defer func() { c.endSpan(span, method, err) }()

	raw, err := c.call(ctx, method, cmd, so.sessionID)
	if err != nil {
		return resp, err
	}
	return decodeResult[R](method, raw)
}

func decodeResult[R any](method string, raw json.RawMessage) (R, error) {
	var out R
	if protocol.IsEmpty(raw) {
		return out, nil
	}
	if p, ok := any(&out).(*json.RawMessage); ok {
		*p = raw
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero R
		return zero, &SerializationError{Method: method, Err: err}
	}
	return out, nil
}
