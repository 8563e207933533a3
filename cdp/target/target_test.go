package target

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/gocdp/client"
	"github.com/localrivet/gocdp/logx"
	"github.com/localrivet/gocdp/protocol"
	"github.com/localrivet/gocdp/transport/inmemory"
)

func newClient(t *testing.T) (*client.Client, *inmemory.Peer, context.Context) {
	t.Helper()
	conn, peer := inmemory.Pipe()
	c := client.New(conn, client.WithLogger(logx.Discard()))
	t.Cleanup(func() { c.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c, peer, ctx
}

func TestCreateTarget(t *testing.T) {
	c, peer, ctx := newClient(t)

	var seen *protocol.Request
	go peer.Serve(ctx, func(req *protocol.Request) (any, *protocol.ErrorPayload) {
		seen = req
		return map[string]string{"targetId": "T1"}, nil
	})

	id, err := CreateTarget("about:blank").Do(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, ID("T1"), id)
	assert.Equal(t, "Target.createTarget", seen.Method)
	assert.JSONEq(t, `{"url":"about:blank"}`, string(seen.Params))

	_, err = CreateTarget("https://example.com").WithNewWindow(true).WithBackground(true).Do(ctx, c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://example.com","newWindow":true,"background":true}`, string(seen.Params))
}

func TestAttachDetachAndClose(t *testing.T) {
	c, peer, ctx := newClient(t)

	var methods []string
	go peer.Serve(ctx, func(req *protocol.Request) (any, *protocol.ErrorPayload) {
		methods = append(methods, req.Method)
		switch req.Method {
		case "Target.attachToTarget":
			return map[string]string{"sessionId": "S1"}, nil
		default:
			return struct{}{}, nil
		}
	})

	session, err := AttachToTarget("T1").Do(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, SessionID("S1"), session)

	require.NoError(t, DetachFromTarget(session).Do(ctx, c))
	require.NoError(t, CloseTarget("T1").Do(ctx, c))
	require.NoError(t, SetDiscoverTargets(true).Do(ctx, c))

	assert.Equal(t, []string{
		"Target.attachToTarget",
		"Target.detachFromTarget",
		"Target.closeTarget",
		"Target.setDiscoverTargets",
	}, methods)
}

func TestGetTargets(t *testing.T) {
	c, peer, ctx := newClient(t)
	go peer.Serve(ctx, func(*protocol.Request) (any, *protocol.ErrorPayload) {
		return map[string]any{"targetInfos": []map[string]any{
			{"targetId": "T1", "type": "page", "title": "blank", "url": "about:blank", "attached": true},
		}}, nil
	})

	infos, err := GetTargets().Do(ctx, c)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, ID("T1"), infos[0].TargetID)
	assert.Equal(t, "page", infos[0].Type)
	assert.True(t, infos[0].Attached)
}

func TestTargetEvents(t *testing.T) {
	c, peer, ctx := newClient(t)

	created := client.Subscribe[EventTargetCreated](c)
	attached := client.Subscribe[EventAttachedToTarget](c)
	defer created.Close()
	defer attached.Close()

	require.NoError(t, peer.Notify("Target.targetCreated", map[string]any{
		"targetInfo": map[string]any{"targetId": "T9", "type": "page", "url": "about:blank"},
	}, ""))
	require.NoError(t, peer.Notify("Target.attachedToTarget", map[string]any{
		"sessionId":  "S9",
		"targetInfo": map[string]any{"targetId": "T9"},
	}, ""))

	ev, err := created.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ID("T9"), ev.TargetInfo.TargetID)

	att, err := attached.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, SessionID("S9"), att.SessionID)

	assert.Equal(t, "Target.targetDestroyed", EventTargetDestroyed{}.EventName())
	assert.Equal(t, "Target.detachedFromTarget", EventDetachedFromTarget{}.EventName())
}
