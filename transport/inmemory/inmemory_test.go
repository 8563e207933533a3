package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/gocdp/protocol"
	"github.com/localrivet/gocdp/transport"
)

func TestClientToPeer(t *testing.T) {
	conn, peer := Pipe()
	ctx := context.Background()

	frame := []byte(`{"id":1,"method":"Page.enable","params":{}}`)
	require.NoError(t, conn.WriteMessage(ctx, frame))
	frame[0] = 'X' // the pipe holds its own copy

	req, err := peer.ReceiveRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), req.ID)
	assert.Equal(t, "Page.enable", req.Method)
}

func TestPeerHelpers(t *testing.T) {
	conn, peer := Pipe()
	ctx := context.Background()

	require.NoError(t, peer.Reply(3, map[string]string{"targetId": "T1"}))
	require.NoError(t, peer.ReplyError(4, protocol.CodeMethodNotFound, "method not found"))
	require.NoError(t, peer.Notify("Page.loadEventFired", map[string]float64{"timestamp": 1}, "S1"))

	got, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"result":{"targetId":"T1"}}`, string(got))

	got, err = conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"error":{"code":-32601,"message":"method not found"}}`, string(got))

	got, err = conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"Page.loadEventFired","params":{"timestamp":1},"sessionId":"S1"}`, string(got))
}

func TestQueuedFramesSurviveClose(t *testing.T) {
	conn, peer := Pipe()
	require.NoError(t, peer.Send([]byte(`{"method":"a"}`)))
	peer.Close()

	got, err := conn.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"method":"a"}`, string(got))

	_, err = conn.ReadMessage(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.ErrorIs(t, conn.WriteMessage(context.Background(), []byte(`{}`)), transport.ErrClosed)
	assert.ErrorIs(t, peer.Send([]byte(`{}`)), transport.ErrClosed)
}

func TestFailSurfacesError(t *testing.T) {
	conn, peer := Pipe()
	reset := errors.New("connection reset by peer")
	peer.Fail(reset)

	_, err := conn.ReadMessage(context.Background())
	assert.ErrorIs(t, err, reset)

	select {
	case <-peer.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestReadHonoursContext(t *testing.T) {
	conn, _ := Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := conn.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWriteBlocksWhenFull(t *testing.T) {
	conn, _ := PipeSize(1)
	require.NoError(t, conn.WriteMessage(context.Background(), []byte(`{}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, conn.WriteMessage(ctx, []byte(`{}`)), context.DeadlineExceeded)
}

func TestServe(t *testing.T) {
	conn, peer := Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go peer.Serve(ctx, func(req *protocol.Request) (any, *protocol.ErrorPayload) {
		if req.Method == "Bad.method" {
			return nil, &protocol.ErrorPayload{Code: protocol.CodeMethodNotFound, Message: "nope"}
		}
		return map[string]string{"method": req.Method}, nil
	})

	require.NoError(t, conn.WriteMessage(ctx, []byte(`{"id":1,"method":"Good.method","params":{}}`)))
	got, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"result":{"method":"Good.method"}}`, string(got))

	require.NoError(t, conn.WriteMessage(ctx, []byte(`{"id":2,"method":"Bad.method","params":{}}`)))
	got, err = conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"error":{"code":-32601,"message":"nope"}}`, string(got))
}
