package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mcp-server/pkg/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	catalog := NewCatalog()
	type echoParams struct {
		Text string `json:"text" description:"Text to echo back."`
	}
	require.NoError(t, catalog.RegisterTools([]ToolRegistration{{
		Definition: protocol.Tool{Name: "echo", Description: "Echoes text."},
		Handler: func(ctx context.Context, params *echoParams) (string, error) {
			return fmt.Sprintf("Echo: %s", params.Text), nil
		},
	}}))
	catalog.RegisterResource(staticDef("cfg://default", "static-body"))

	server := NewServer("TestServer", "0.0.1", protocol.ServerCapabilities{
		Tools:     &protocol.ServerToolCapabilities{},
		Resources: &protocol.ServerResourceCapabilities{},
	}, catalog)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func postRPC(t *testing.T, url, token, method string, id int, params interface{}) (*http.Response, protocol.Response) {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		body["params"] = params
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url+"/mcp", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}

	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer httpResp.Body.Close()

	var resp protocol.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	return httpResp, resp
}

func initialize(t *testing.T, url string) string {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": protocol.InitializeRequest{
			ProtocolVersion: "2025-03-26",
			ClientInfo:      protocol.ImplementationInfo{Name: "test-client", Version: "0.0.1"},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	httpResp, err := http.Post(url+"/mcp", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	token := httpResp.Header.Get(sessionHeader)
	require.NotEmpty(t, token)
	return token
}

func TestInitializeIssuesSessionToken(t *testing.T) {
	server, ts := newTestServer(t)

	token := initialize(t, ts.URL)
	assert.Equal(t, 1, server.Sessions().Len())

	_, err := server.Sessions().Get(token)
	assert.NoError(t, err)
}

func TestRequestWithSessionToken(t *testing.T) {
	_, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	httpResp, resp := postRPC(t, ts.URL, token, "tools/list", 2, nil)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	require.Nil(t, resp.Error)

	var result protocol.ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestRequestWithBogusTokenIsSessionError(t *testing.T) {
	server, ts := newTestServer(t)

	httpResp, resp := postRPC(t, ts.URL, "bogus", "tools/list", 2, nil)
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeSessionError, resp.Error.Code)

	// Rejection must not create a session.
	assert.Equal(t, 0, server.Sessions().Len())
}

func TestRequestWithoutTokenIsSessionError(t *testing.T) {
	_, ts := newTestServer(t)

	_, resp := postRPC(t, ts.URL, "", "tools/list", 2, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeSessionError, resp.Error.Code)
}

func TestEchoToolEndToEnd(t *testing.T) {
	_, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	_, resp := postRPC(t, ts.URL, token, "tools/call", 3, protocol.CallToolRequest{
		Name:      "echo",
		Arguments: map[string]interface{}{"text": "Hello"},
	})
	require.Nil(t, resp.Error)

	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.False(t, result.IsError)
	assert.Equal(t, "Echo: Hello", result.Content[0].Text)
}

func TestUnknownToolIsSoftErrorAndSessionSurvives(t *testing.T) {
	_, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	_, resp := postRPC(t, ts.URL, token, "tools/call", 4, protocol.CallToolRequest{Name: "nope"})
	require.Nil(t, resp.Error)

	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "nope")

	// Same session keeps working.
	_, resp = postRPC(t, ts.URL, token, "tools/call", 5, protocol.CallToolRequest{
		Name:      "echo",
		Arguments: map[string]interface{}{"text": "again"},
	})
	require.Nil(t, resp.Error)
	result = protocol.CallToolResult{}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.False(t, result.IsError)
}

func TestResourceReadOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	_, resp := postRPC(t, ts.URL, token, "resources/read", 6, protocol.ReadResourceRequest{URI: "cfg://default"})
	require.Nil(t, resp.Error)

	var result protocol.ReadResourceResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "static-body", result.Contents[0].Text)

	// A miss is a hard protocol error, not a soft result.
	_, resp = postRPC(t, ts.URL, token, "resources/read", 7, protocol.ReadResourceRequest{URI: "missing://x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)
}

func TestSessionTerminationVerb(t *testing.T) {
	server, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
	require.NoError(t, err)
	req.Header.Set(sessionHeader, token)
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, httpResp.StatusCode)
	assert.Equal(t, 0, server.Sessions().Len())

	// The dead token is rejected afterwards.
	_, resp := postRPC(t, ts.URL, token, "tools/list", 8, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeSessionError, resp.Error.Code)
}

func TestSessionIsolationOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	tokenA := initialize(t, ts.URL)
	tokenB := initialize(t, ts.URL)
	require.NotEqual(t, tokenA, tokenB)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
	require.NoError(t, err)
	req.Header.Set(sessionHeader, tokenA)
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	httpResp.Body.Close()

	// B is untouched by A's termination.
	_, resp := postRPC(t, ts.URL, tokenB, "tools/list", 9, nil)
	assert.Nil(t, resp.Error)
}

func TestPing(t *testing.T) {
	_, ts := newTestServer(t)
	token := initialize(t, ts.URL)

	_, resp := postRPC(t, ts.URL, token, "ping", 10, nil)
	require.Nil(t, resp.Error)
	var result protocol.PingResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "ok", result.Status)
}

func TestMalformedEnvelopeIsParseError(t *testing.T) {
	_, ts := newTestServer(t)

	httpResp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, httpResp.StatusCode)

	var resp protocol.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeParseError, resp.Error.Code)
}

func TestNotificationIsAccepted(t *testing.T) {
	_, ts := newTestServer(t)

	body := []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	httpResp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, httpResp.StatusCode)
}

func TestHealthzProbe(t *testing.T) {
	_, ts := newTestServer(t)

	httpResp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "TestServer", payload["name"])
}

func TestCatalogProbe(t *testing.T) {
	_, ts := newTestServer(t)

	httpResp, err := http.Get(ts.URL + "/debug/catalog")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var payload struct {
		Tools     []protocol.Tool     `json:"tools"`
		Resources []protocol.Resource `json:"resources"`
	}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&payload))
	require.Len(t, payload.Tools, 1)
	assert.Equal(t, "echo", payload.Tools[0].Name)
	require.Len(t, payload.Resources, 1)
	assert.Equal(t, "cfg://default", payload.Resources[0].URI)
}

func TestShutdownDrainsSessions(t *testing.T) {
	server, ts := newTestServer(t)
	initialize(t, ts.URL)
	initialize(t, ts.URL)
	require.Equal(t, 2, server.Sessions().Len())

	require.NoError(t, server.Shutdown(context.Background()))
	assert.Equal(t, 0, server.Sessions().Len())
}
