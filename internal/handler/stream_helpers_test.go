package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"growthops/internal/events"
)

func dialStream(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	var ev events.Event
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	return ev
}
