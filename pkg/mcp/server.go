package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go-mcp-server/pkg/protocol"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// sessionHeader carries the session correlation token on the HTTP transport.
const sessionHeader = "Mcp-Session-Id"

// Server serves the protocol over a multiplexed HTTP endpoint. Many client
// sessions share one listening socket; requests are correlated to their
// session through the Mcp-Session-Id header issued at initialize time.
type Server struct {
	serverMux    *http.ServeMux
	info         protocol.ImplementationInfo
	capabilities protocol.ServerCapabilities
	catalog      *Catalog
	sessions     *SessionManager

	httpServer *http.Server
}

// NewServer creates an MCP server around an already-populated catalog.
func NewServer(name, version string, capabilities protocol.ServerCapabilities, catalog *Catalog) *Server {
	s := &Server{
		serverMux:    http.NewServeMux(),
		info:         protocol.ImplementationInfo{Name: name, Version: version},
		capabilities: capabilities,
		catalog:      catalog,
		sessions:     NewSessionManager(catalog),
	}
	s.serverMux.HandleFunc("/mcp", s.handleMCPRequest)
	s.serverMux.HandleFunc("/mcp/ws", s.HandleWebSocket)
	s.serverMux.HandleFunc("/healthz", s.handleHealthz)
	s.serverMux.HandleFunc("/debug/catalog", s.handleCatalogProbe)
	s.serverMux.Handle("/metrics", promhttp.Handler())
	return s
}

// Catalog returns the server's catalog. Registration must finish before the
// server starts accepting requests; the catalog is read-only afterwards.
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// Sessions exposes the session table, mainly for tests and probes.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the root HTTP handler, for mounting under an existing mux
// or an httptest server.
func (s *Server) Handler() http.Handler {
	return s.serverMux
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.serverMux}
	log.Infof("MCP Server '%s' version '%s' listening on %s", s.info.Name, s.info.Version, addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains every session, clears the table, then releases the
// listening socket. No session outlives the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Placeholder for the server-to-client event stream.
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		s.handleTerminateSession(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	req, notif, err := decodeEnvelope(body)
	if err != nil {
		writeResponse(w, errorResponse(protocol.RequestID{}, protocol.CodeParseError, "Parse error", err))
		return
	}

	if notif != nil {
		handleNotification(notif)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	log.Infof("Received request: Method=%s, ID=%s", req.Method, req.ID.String())

	if req.Method == methodInitialize {
		s.handleInitialize(w, req)
		return
	}

	sess, err := s.sessions.Get(r.Header.Get(sessionHeader))
	if err != nil {
		observeRequest(req.Method, false)
		writeResponse(w, errorResponse(req.ID, protocol.CodeSessionError, err.Error(), nil))
		return
	}

	resp := dispatchRequest(r.Context(), sess.Dispatcher(), req)
	observeRequest(req.Method, resp.Error == nil)
	writeResponse(w, resp)
}

func (s *Server) handleInitialize(w http.ResponseWriter, req *protocol.Request) {
	var initParams protocol.InitializeRequest
	if err := json.Unmarshal(req.Params, &initParams); err != nil {
		writeResponse(w, errorResponse(req.ID, protocol.CodeInvalidParams, "Invalid params for initialize", err))
		return
	}

	log.Infof("Client '%s' version '%s' connecting with protocol version '%s'",
		initParams.ClientInfo.Name, initParams.ClientInfo.Version, initParams.ProtocolVersion)

	sess, err := s.sessions.Create(initParams.ClientInfo)
	if err != nil {
		observeRequest(methodInitialize, false)
		writeResponse(w, errorResponse(req.ID, protocol.CodeSessionError, err.Error(), nil))
		return
	}

	result := protocol.InitializeResult{
		ProtocolVersion: initParams.ProtocolVersion,
		ServerInfo:      s.info,
		Capabilities:    s.capabilities,
	}

	observeRequest(methodInitialize, true)
	w.Header().Set(sessionHeader, sess.ID)
	writeResponse(w, successResponse(req.ID, result))
}

// handleTerminateSession serves the explicit session-termination verb:
// DELETE on the MCP endpoint with the session token in the header.
func (s *Server) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(sessionHeader)
	if token == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.sessions.Terminate(token); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealthz is a liveness probe with a fixed payload.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"name":    s.info.Name,
		"version": s.info.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCatalogProbe dumps the full descriptor catalog for operational
// inspection. Handlers are never serialized.
func (s *Server) handleCatalogProbe(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"tools":             s.catalog.ListTools(),
		"resources":         s.catalog.ListResources(),
		"resourceTemplates": s.catalog.ListResourceTemplates(),
	})
}

// writeResponse writes a JSON-RPC response, mapping error codes onto HTTP
// status the way the protocol clients expect.
func writeResponse(w http.ResponseWriter, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != nil {
		switch resp.Error.Code {
		case protocol.CodeParseError, protocol.CodeInvalidRequest, protocol.CodeInvalidParams:
			w.WriteHeader(http.StatusBadRequest)
		case protocol.CodeMethodNotFound, protocol.CodeSessionError:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("Error writing response: %v", err)
	}
}
