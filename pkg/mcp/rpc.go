package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"go-mcp-server/pkg/protocol"

	log "github.com/sirupsen/logrus"
)

// Recognized request methods.
const (
	methodInitialize            = "initialize"
	methodPing                  = "ping"
	methodToolsList             = "tools/list"
	methodToolsCall             = "tools/call"
	methodResourcesList         = "resources/list"
	methodResourcesRead         = "resources/read"
	methodResourceTemplatesList = "resources/templates/list"
)

// dispatchRequest routes one decoded request through a session's dispatcher
// and builds the response. It is shared by every transport; "initialize" and
// session termination are transport concerns and handled before this point.
func dispatchRequest(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	switch req.Method {
	case methodPing:
		return successResponse(req.ID, protocol.PingResult{Status: "ok"})

	case methodToolsList:
		return successResponse(req.ID, d.ListTools())

	case methodToolsCall:
		var params protocol.CallToolRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, protocol.CodeInvalidParams, "Invalid params for tools/call", err)
		}
		log.Infof("Received tools/call request for tool '%s': ID=%s", params.Name, req.ID.String())
		return successResponse(req.ID, d.CallTool(ctx, params.Name, params.Arguments))

	case methodResourcesList:
		return successResponse(req.ID, d.ListResources())

	case methodResourcesRead:
		var params protocol.ReadResourceRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, protocol.CodeInvalidParams, "Invalid params for resources/read", err)
		}
		log.Infof("Received resources/read request for '%s': ID=%s", params.URI, req.ID.String())
		result, err := d.ReadResource(ctx, params.URI)
		if err != nil {
			return errorResponse(req.ID, errorCode(err), err.Error(), nil)
		}
		return successResponse(req.ID, result)

	case methodResourceTemplatesList:
		return successResponse(req.ID, d.ListResourceTemplates())

	default:
		log.Infof("Unknown method: %s", req.Method)
		return errorResponse(req.ID, protocol.CodeMethodNotFound, "Method not found", nil)
	}
}

// successResponse marshals a result into a JSON-RPC response.
func successResponse(id protocol.RequestID, result interface{}) *protocol.Response {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, protocol.CodeInternalError, "Internal server error: failed to marshal result", err)
	}
	return &protocol.Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  resultBytes,
	}
}

// errorResponse builds a JSON-RPC error response.
func errorResponse(id protocol.RequestID, code int, message string, data error) *protocol.Response {
	errorObj := &protocol.ErrorObject{Code: code, Message: message}
	if data != nil {
		errorObj.Data = data.Error()
	}
	return &protocol.Response{JSONRPC: "2.0", ID: id, Error: errorObj}
}

// decodeEnvelope splits a raw message into a request or a notification. A
// body that is valid JSON but not a valid envelope is a transport error.
func decodeEnvelope(body []byte) (*protocol.Request, *protocol.Notification, error) {
	var rawMessage map[string]json.RawMessage
	if err := json.Unmarshal(body, &rawMessage); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if _, ok := rawMessage["id"]; ok {
		var req protocol.Request
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, nil, fmt.Errorf("invalid request structure: %w", err)
		}
		return &req, nil, nil
	}

	var notif protocol.Notification
	if err := json.Unmarshal(body, &notif); err != nil {
		return nil, nil, fmt.Errorf("invalid notification structure: %w", err)
	}
	return nil, &notif, nil
}

// handleNotification processes a client notification. Notifications carry no
// ID and get no response.
func handleNotification(n *protocol.Notification) {
	switch n.Method {
	case "notifications/initialized":
		log.Infof("Client confirmed initialization.")
	default:
		log.Infof("Received unhandled notification: %s", n.Method)
	}
}
