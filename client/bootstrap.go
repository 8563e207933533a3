package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/localrivet/gocdp/transport"
	"github.com/localrivet/gocdp/transport/ws"
)

// VersionPath is the HTTP metadata path that advertises the browser-level
// websocket endpoint.
const VersionPath = "/json/version"

// VersionInfo is the /json/version document.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	V8Version            string `json:"V8-Version,omitempty"`
	WebKitVersion        string `json:"WebKit-Version,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Connect opens a client to addr. A ws:// or wss:// address is dialled
// directly; anything else is treated as an HTTP host whose /json/version
// document names the endpoint. Failures are *ConnectionFailedError. There
// are no retries.
func Connect(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	endpoint := addr
	if !isWebSocketURL(addr) {
		var err error
		endpoint, err = DiscoverEndpoint(ctx, o.httpClient, addr)
		if err != nil {
			return nil, err
		}
	}

	dial := o.dialer
	if dial == nil {
		dial = func(ctx context.Context, url string) (transport.Conn, error) {
			return ws.Dial(ctx, url, ws.Options{
				Header:      o.header,
				DialTimeout: o.dialTimeout,
				Logger:      o.logger,
			})
		}
	}

	o.logger.Debug("dialing devtools endpoint", "endpoint", endpoint)
	conn, err := dial(ctx, endpoint)
	if err != nil {
		return nil, &ConnectionFailedError{Endpoint: endpoint, Err: err}
	}
	return newClient(conn, o), nil
}

// DiscoverEndpoint asks host for its websocket debugger URL.
func DiscoverEndpoint(ctx context.Context, httpClient *http.Client, host string) (string, error) {
	info, err := BrowserVersion(ctx, httpClient, host)
	if err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", &ConnectionFailedError{
			Endpoint: versionURL(host),
			Err:      errors.New("response has no webSocketDebuggerUrl"),
		}
	}
	return info.WebSocketDebuggerURL, nil
}

// BrowserVersion fetches the /json/version document from host. A host
// without a scheme is reached over plain http.
func BrowserVersion(ctx context.Context, httpClient *http.Client, host string) (*VersionInfo, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	url := versionURL(host)
	fail := func(err error) (*VersionInfo, error) {
		return nil, &ConnectionFailedError{Endpoint: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fail(fmt.Errorf("failed to decode version document: %w", err))
	}
	return &info, nil
}

func versionURL(host string) string {
	base := host
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/") + VersionPath
}

func isWebSocketURL(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}
