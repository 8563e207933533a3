// Package gocdp is a Go client runtime for the Chrome DevTools Protocol.
//
// # Overview
//
// A DevTools endpoint speaks JSON text frames over one persistent websocket.
// Callers send commands tagged with an id and receive replies carrying the same
// id, while the browser pushes notifications (events) on the same connection.
// gocdp runs a single transport loop per connection that owns the socket,
// matches replies to their callers, and fans notifications out to subscribers.
//
// # Organization
//
//   - github.com/localrivet/gocdp/client: the session runtime (Send, Subscribe, Connect)
//   - github.com/localrivet/gocdp/protocol: wire envelopes and frame classification
//   - github.com/localrivet/gocdp/transport: the connection interface, with ws and inmemory implementations
//   - github.com/localrivet/gocdp/cdp/...: typed commands and events for common domains
//   - github.com/localrivet/gocdp/config: file based client configuration
//   - github.com/localrivet/gocdp/logx: slog logger construction
//
// # Basic Usage
//
//	c, err := gocdp.Connect(ctx, "localhost:9222")
//	if err != nil {
//	  log.Fatalf("Failed to connect: %v", err)
//	}
//	defer c.Close()
//
//	loads := client.Subscribe[page.EventLoadEventFired](c)
//	defer loads.Close()
//
//	id, err := target.CreateTarget("https://example.com").Do(ctx, c)
//
//	// Untyped commands work too.
//	raw, err := client.Send[json.RawMessage](ctx, c, client.RawCommand{Name: "Browser.getVersion"})
//
// # Errors
//
// A rejected command fails with *client.ProtocolError carrying the browser's
// code and message. A result that does not decode fails with
// *client.SerializationError. When the connection ends, every command still
// waiting fails with client.ErrConnectionClosed.
//
// # Versioning
//
// gocdp follows semantic versioning. The current version is available through the Version constant.
package gocdp

import (
	"context"

	"github.com/localrivet/gocdp/client"
)

// Version is the current version of the gocdp library
const Version = "0.1.0"

// Connect is shorthand for client.Connect.
func Connect(ctx context.Context, addr string, opts ...client.Option) (*client.Client, error) {
	return client.Connect(ctx, addr, opts...)
}
