// Package protocol defines the envelopes exchanged with a DevTools endpoint:
// outbound command requests and the inbound replies and notifications that
// share the same duplex connection.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is an outbound command frame. SessionID is only present when the
// command targets an attached sub-session.
type Request struct {
	ID        uint64          `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"sessionId,omitempty"`
}

// ErrorPayload is the "error" object of a rejected command.
type ErrorPayload struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewRequest builds a request frame for method. Params that marshal to
// nothing or to null are sent as an empty object.
func NewRequest(id uint64, method string, params any, sessionID string) (*Request, error) {
	raw, err := MarshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Request{
		ID:        id,
		Method:    method,
		Params:    raw,
		SessionID: sessionID,
	}, nil
}

// MarshalParams encodes a command payload for the "params" field.
func MarshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return emptyObject(), nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		if IsEmpty(raw) {
			return emptyObject(), nil
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("params are not valid JSON")
		}
		return raw, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params (type %T): %w", params, err)
	}
	if IsEmpty(data) {
		return emptyObject(), nil
	}
	return data, nil
}

// IsEmpty reports whether a payload is absent, null or an empty object.
// Commands without a response body reply with any of the three.
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return false
	}
	return len(bytes.TrimSpace(trimmed[1:len(trimmed)-1])) == 0
}

func emptyObject() json.RawMessage {
	return json.RawMessage(`{}`)
}
