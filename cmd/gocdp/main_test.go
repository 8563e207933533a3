package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/gocdp/protocol"
)

// fakeBrowser answers Target.createTarget and Page.enable, rejects unknown
// methods, and emits one Page.loadEventFired shortly after each connection
// opens.
func fakeBrowser(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"Browser":              "HeadlessChrome/120.0.0.0",
			"webSocketDebuggerUrl": "ws" + strings.TrimPrefix(server.URL, "http") + "/devtools/browser/1",
		})
	})
	mux.HandleFunc("/devtools/browser/1", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		write := func(v any) error {
			out, _ := json.Marshal(v)
			writeMu.Lock()
			defer writeMu.Unlock()
			return wsutil.WriteServerMessage(conn, ws.OpText, out)
		}
		go func() {
			time.Sleep(100 * time.Millisecond)
			_ = write(map[string]any{"method": "Page.loadEventFired", "params": map[string]float64{"timestamp": 1.5}})
		}()

		for {
			data, _, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			var req protocol.Request
			if json.Unmarshal(data, &req) != nil {
				return
			}

			var reply any
			switch req.Method {
			case "Target.createTarget":
				reply = map[string]any{"id": req.ID, "result": map[string]string{"targetId": "T1"}}
			case "Page.enable":
				reply = map[string]any{"id": req.ID, "result": map[string]any{}}
			default:
				reply = map[string]any{"id": req.ID, "error": map[string]any{"code": -32601, "message": "'" + req.Method + "' wasn't found"}}
			}
			if write(reply) != nil {
				return
			}
		}
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	server := fakeBrowser(t)
	out, err := run(t, context.Background(), "version", "--host", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "HeadlessChrome/120.0.0.0")
}

func TestNewTargetCommand(t *testing.T) {
	server := fakeBrowser(t)
	out, err := run(t, context.Background(), "new-target", "about:blank", "--host", strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	assert.Equal(t, "T1\n", out)
}

func TestSendCommand(t *testing.T) {
	server := fakeBrowser(t)

	out, err := run(t, context.Background(), "send", "Target.createTarget", `{"url":"about:blank"}`, "--host", server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"targetId":"T1"}`, out)

	out, err = run(t, context.Background(), "send", "Page.enable", "--host", server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)

	_, err = run(t, context.Background(), "send", "Nope.nothing", "--host", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code -32601")

	_, err = run(t, context.Background(), "send", "Page.enable", "{not json", "--host", server.URL)
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestListenCommand(t *testing.T) {
	server := fakeBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	out, err := run(t, ctx, "listen", "Page.loadEventFired", "Page.frameNavigated", "--host", server.URL)
	require.NoError(t, err)

	var line struct {
		Method string
		Params struct{ Timestamp float64 }
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.Equal(t, "Page.loadEventFired", line.Method)
	assert.Equal(t, 1.5, line.Params.Timestamp)
}

func TestConfigFileAndMetrics(t *testing.T) {
	server := fakeBrowser(t)
	path := filepath.Join(t.TempDir(), "gocdp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: "+server.URL+"\nrequestTimeout: 2s\n"), 0o600))

	out, err := run(t, context.Background(), "new-target", "about:blank", "--config", path, "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Equal(t, "T1\n", out)
}

func TestBadFlags(t *testing.T) {
	_, err := run(t, context.Background(), "version", "--log-format", "xml")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "send")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "version", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
