package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"go-mcp-server/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// serves the protocol over it. The connection itself is the correlation
// scope: a session is created at upgrade time and torn down on disconnect,
// so frames never carry an explicit token.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, err := s.sessions.Create(protocol.ImplementationInfo{})
	if err != nil {
		log.Warnf("websocket session rejected: %v", err)
		return
	}
	defer func() {
		_ = s.sessions.Terminate(sess.ID)
	}()

	log.Infof("websocket connection opened, session %s", sess.ID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("websocket read failed: %v", err)
			}
			return
		}

		req, notif, err := decodeEnvelope(payload)
		if err != nil {
			s.writeWebSocket(conn, errorResponse(protocol.RequestID{}, protocol.CodeParseError, "Parse error", err))
			continue
		}
		if notif != nil {
			handleNotification(notif)
			continue
		}

		var resp *protocol.Response
		if req.Method == methodInitialize {
			var initParams protocol.InitializeRequest
			if err := json.Unmarshal(req.Params, &initParams); err != nil {
				resp = errorResponse(req.ID, protocol.CodeInvalidParams, "Invalid params for initialize", err)
			} else {
				resp = successResponse(req.ID, protocol.InitializeResult{
					ProtocolVersion: initParams.ProtocolVersion,
					ServerInfo:      s.info,
					Capabilities:    s.capabilities,
				})
			}
		} else {
			resp = dispatchRequest(r.Context(), sess.Dispatcher(), req)
		}
		observeRequest(req.Method, resp.Error == nil)
		s.writeWebSocket(conn, resp)
	}
}

func (s *Server) writeWebSocket(conn *websocket.Conn, resp *protocol.Response) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Errorf("Error writing websocket response: %v", err)
	}
}
