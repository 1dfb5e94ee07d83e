package mcp

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mcp-server/pkg/protocol"
)

func dialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/mcp/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsRoundTrip(t *testing.T, conn *websocket.Conn, payload string) protocol.Response {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestWebSocketConnectionIsItsOwnSession(t *testing.T) {
	server, ts := newTestServer(t)

	conn := dialWebSocket(t, ts)
	require.Eventually(t, func() bool { return server.Sessions().Len() == 1 },
		time.Second, 10*time.Millisecond)

	resp := wsRoundTrip(t, conn, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"ws-client","version":"0.0.1"}}}`)
	require.Nil(t, resp.Error)

	// No token travels on frames; the connection is the correlation scope.
	resp = wsRoundTrip(t, conn, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"Hello"}}}`)
	require.Nil(t, resp.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "Echo: Hello", result.Content[0].Text)
}

func TestWebSocketDisconnectClosesSession(t *testing.T) {
	server, ts := newTestServer(t)

	conn := dialWebSocket(t, ts)
	require.Eventually(t, func() bool { return server.Sessions().Len() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return server.Sessions().Len() == 0 },
		time.Second, 10*time.Millisecond)
}
