package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeClassification(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		kind   Kind
		id     uint64
		method string
	}{
		{"success reply", `{"id":1,"result":{"targetId":"T1"}}`, KindResult, 1, ""},
		{"error reply", `{"id":5,"error":{"code":-32601,"message":"method not found"}}`, KindResult, 5, ""},
		{"reply without result", `{"id":7}`, KindResult, 7, ""},
		{"notification", `{"method":"Page.loadEventFired","params":{"timestamp":123.4}}`, KindNotification, 0, "Page.loadEventFired"},
		{"notification with string id", `{"id":"x","method":"Page.frameNavigated","params":{}}`, KindNotification, 0, "Page.frameNavigated"},
		{"notification with null id", `{"id":null,"method":"Page.loadEventFired","params":{"timestamp":7}}`, KindNotification, 0, "Page.loadEventFired"},
		{"null id alone", `{"id":null,"result":{}}`, KindUnrecognized, 0, ""},
		{"negative id is not a reply", `{"id":-3}`, KindUnrecognized, 0, ""},
		{"empty object", `{}`, KindUnrecognized, 0, ""},
		{"method of wrong type", `{"method":42}`, KindUnrecognized, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, tt.id, env.ID)
			assert.Equal(t, tt.method, env.Method)
		})
	}
}

func TestParseEnvelopeRejectsNonObjects(t *testing.T) {
	for _, frame := range []string{`not json`, `[1,2]`, `42`, `null`, ``} {
		_, err := ParseEnvelope([]byte(frame))
		assert.Error(t, err, "frame %q", frame)
	}
}

func TestParseEnvelopeResultAndSession(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"id":3,"result":{"value":1},"sessionId":"S1"}`))
	require.NoError(t, err)
	assert.Nil(t, env.Error)
	assert.JSONEq(t, `{"value":1}`, string(env.Result))
	assert.Equal(t, "S1", env.SessionID)

	env, err = ParseEnvelope([]byte(`{"method":"Runtime.consoleAPICalled","params":{"type":"log"},"sessionId":"S2"}`))
	require.NoError(t, err)
	assert.Equal(t, KindNotification, env.Kind)
	assert.Equal(t, "S2", env.SessionID)
	assert.JSONEq(t, `{"type":"log"}`, string(env.Params))
}

func TestParseEnvelopeErrorPayload(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		code    int64
		message string
	}{
		{"verbatim", `{"id":5,"error":{"code":-32601,"message":"method not found"}}`, CodeMethodNotFound, "method not found"},
		{"missing code", `{"id":5,"error":{"message":"boom"}}`, UnknownErrorCode, "boom"},
		{"missing message", `{"id":5,"error":{"code":-32000}}`, CodeServerError, UnknownErrorMessage},
		{"string code", `{"id":5,"error":{"code":"-32602","message":"bad"}}`, CodeInvalidParams, "bad"},
		{"garbage code", `{"id":5,"error":{"code":"nope","message":"bad"}}`, UnknownErrorCode, "bad"},
		{"not an object", `{"id":5,"error":"denied"}`, UnknownErrorCode, UnknownErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.frame))
			require.NoError(t, err)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
		})
	}
}

func TestParseEnvelopeNullErrorIsSuccess(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"id":9,"error":null,"result":{}}`))
	require.NoError(t, err)
	assert.Nil(t, env.Error)
	assert.Equal(t, `{}`, string(env.Result))
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(1, "Target.createTarget", map[string]string{"url": "about:blank"}, "")
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"method":"Target.createTarget","params":{"url":"about:blank"}}`, string(data))

	req, err = NewRequest(2, "Page.enable", nil, "S1")
	require.NoError(t, err)
	data, err = json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"method":"Page.enable","params":{},"sessionId":"S1"}`, string(data))
}

func TestMarshalParams(t *testing.T) {
	var nilMap map[string]any
	raw, err := MarshalParams(nilMap)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))

	raw, err = MarshalParams(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	_, err = MarshalParams(json.RawMessage(`{"a":`))
	assert.Error(t, err)

	_, err = MarshalParams(map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(json.RawMessage(`null`)))
	assert.True(t, IsEmpty(json.RawMessage(` { } `)))
	assert.False(t, IsEmpty(json.RawMessage(`{"a":1}`)))
	assert.False(t, IsEmpty(json.RawMessage(`"x"`)))
	assert.False(t, IsEmpty(json.RawMessage(`[]`)))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "result", KindResult.String())
	assert.Equal(t, "notification", KindNotification.String())
	assert.Equal(t, "unrecognized", KindUnrecognized.String())
}
