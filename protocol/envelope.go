package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Kind classifies an inbound frame.
type Kind int

const (
	// KindUnrecognized is a well-formed object that is neither a reply nor a
	// notification.
	KindUnrecognized Kind = iota
	// KindResult is a reply to a command, carrying either Result or Error.
	KindResult
	// KindNotification is an out-of-band event without an id.
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindNotification:
		return "notification"
	default:
		return "unrecognized"
	}
}

// Envelope is the decoded outer object of an inbound frame. Params and Result
// reference the original frame bytes and must not be modified.
type Envelope struct {
	Kind      Kind
	ID        uint64
	Method    string
	SessionID string
	Params    json.RawMessage
	Result    json.RawMessage
	Error     *ErrorPayload
}

// ParseEnvelope classifies a text frame. A frame with a numeric id is a
// command result; a frame with a method and no usable id is a notification;
// any other object is KindUnrecognized. An error is returned only when the
// frame is not a JSON object at all.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("failed to parse frame: not an object")
	}

	env := &Envelope{Kind: KindUnrecognized}
	if raw, ok := fields["sessionId"]; ok {
		_ = json.Unmarshal(raw, &env.SessionID)
	}

	if raw, ok := fields["id"]; ok && !isNull(raw) {
		var id uint64
		if err := json.Unmarshal(raw, &id); err == nil {
			env.Kind = KindResult
			env.ID = id
			if rawErr, ok := fields["error"]; ok && !isNull(rawErr) {
				env.Error = decodeErrorPayload(rawErr)
			} else {
				env.Result = fields["result"]
			}
			return env, nil
		}
	}

	if raw, ok := fields["method"]; ok {
		var method string
		if err := json.Unmarshal(raw, &method); err == nil {
			env.Kind = KindNotification
			env.Method = method
			env.Params = fields["params"]
			return env, nil
		}
	}

	return env, nil
}

// decodeErrorPayload reads an error object leniently: peers occasionally send
// codes as strings or omit fields, and neither should hide the rejection.
func decodeErrorPayload(raw json.RawMessage) *ErrorPayload {
	payload := &ErrorPayload{
		Code:    UnknownErrorCode,
		Message: UnknownErrorMessage,
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return payload
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		payload.Data = generic
		return payload
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           payload,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return payload
	}
	// Fields that fail to decode keep their defaults.
	_ = decoder.Decode(obj)
	return payload
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
