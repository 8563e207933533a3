package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/gocdp/transport"
)

// newPeer starts an httptest server that upgrades every request and hands
// the server side of the connection to handle.
func newPeer(t *testing.T, handle func(conn net.Conn, r *http.Request)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string, opts Options) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDialRejectsNonWebSocketURL(t *testing.T) {
	_, err := Dial(context.Background(), "http://localhost:9222", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be ws or wss")
}

func TestEcho(t *testing.T) {
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		for {
			msg, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			if err := wsutil.WriteServerMessage(conn, op, msg); err != nil {
				return
			}
		}
	})

	conn := dial(t, url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, conn.WriteMessage(ctx, []byte(`{"id":1,"method":"Browser.getVersion","params":{}}`)))
	got, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"method":"Browser.getVersion","params":{}}`, string(got))
}

func TestHeaderIsSentWithHandshake(t *testing.T) {
	seen := make(chan string, 1)
	url := newPeer(t, func(_ net.Conn, r *http.Request) {
		seen <- r.Header.Get("Authorization")
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer token")
	dial(t, url, Options{Header: header})

	select {
	case got := <-seen:
		assert.Equal(t, "Bearer token", got)
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never reached the peer")
	}
}

func TestFragmentedMessageIsReassembled(t *testing.T) {
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpText, false, []byte(`{"method":`)))
		_ = ws.WriteFrame(conn, ws.NewPingFrame([]byte("mid")))
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpContinuation, true, []byte(`"Page.loadEventFired"}`)))
		time.Sleep(200 * time.Millisecond)
	})

	conn := dial(t, url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"method":"Page.loadEventFired"}`, string(got))
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	pong := make(chan []byte, 1)
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		if err := ws.WriteFrame(conn, ws.NewPingFrame([]byte("hb"))); err != nil {
			return
		}
		frame, err := ws.ReadFrame(conn)
		if err != nil {
			return
		}
		if frame.Header.Masked {
			ws.Cipher(frame.Payload, frame.Header.Mask, 0)
		}
		if frame.Header.OpCode == ws.OpPong {
			pong <- frame.Payload
		}
		_ = wsutil.WriteServerMessage(conn, ws.OpText, []byte(`{"method":"after.ping"}`))
		time.Sleep(200 * time.Millisecond)
	})

	conn := dial(t, url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"method":"after.ping"}`, string(got))

	select {
	case payload := <-pong:
		assert.Equal(t, "hb", string(payload))
	default:
		t.Fatal("peer did not receive a pong")
	}
}

func TestPeerCloseSurfacesAsErrClosed(t *testing.T) {
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		body := ws.NewCloseFrameBody(ws.StatusGoingAway, "bye")
		_ = ws.WriteFrame(conn, ws.NewCloseFrame(body))
		time.Sleep(200 * time.Millisecond)
	})

	conn := dial(t, url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := conn.ReadMessage(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrClosed), "got %v", err)
}

func TestCloseUnblocksReadAndRejectsWrites(t *testing.T) {
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		_, _, _ = wsutil.ReadClientData(conn)
	})

	conn := dial(t, url, Options{})

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close(), "second close is a no-op")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, transport.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadMessage did not return after Close")
	}

	err := conn.WriteMessage(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestReadHonoursContextCancellation(t *testing.T) {
	url := newPeer(t, func(conn net.Conn, _ *http.Request) {
		_, _, _ = wsutil.ReadClientData(conn)
	})

	conn := dial(t, url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := conn.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
