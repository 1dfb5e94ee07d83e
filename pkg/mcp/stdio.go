package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go-mcp-server/pkg/protocol"

	log "github.com/sirupsen/logrus"
)

// StdioServer serves the protocol over a single persistent byte-stream pipe:
// newline-delimited JSON-RPC on stdin/stdout. There is exactly one implicit
// session for the lifetime of the process, so no token negotiation happens
// and the session state machine stays Active for the whole run.
type StdioServer struct {
	info         protocol.ImplementationInfo
	capabilities protocol.ServerCapabilities
	dispatcher   *Dispatcher

	in  io.Reader
	out io.Writer
	// writeMu serializes response writes so interleaved handlers cannot
	// corrupt the output stream.
	writeMu sync.Mutex
}

// StdioOption configures a StdioServer.
type StdioOption func(*StdioServer)

// WithStdin sets a custom input reader. Used by tests.
func WithStdin(r io.Reader) StdioOption {
	return func(s *StdioServer) { s.in = r }
}

// WithStdout sets a custom output writer. Used by tests.
func WithStdout(w io.Writer) StdioOption {
	return func(s *StdioServer) { s.out = w }
}

// NewStdioServer creates a pipe-mode server around a populated catalog.
func NewStdioServer(name, version string, capabilities protocol.ServerCapabilities, catalog *Catalog, opts ...StdioOption) *StdioServer {
	s := &StdioServer{
		info:         protocol.ImplementationInfo{Name: name, Version: version},
		capabilities: capabilities,
		dispatcher:   NewDispatcher(catalog),
		in:           os.Stdin,
		out:          os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads requests until EOF or context cancellation. Logs must go to
// stderr in this mode; stdout belongs to the protocol.
func (s *StdioServer) Serve(ctx context.Context) error {
	log.Infof("MCP Server '%s' version '%s' serving on stdio", s.info.Name, s.info.Version)

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				log.Infof("stdio stream closed")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			s.handleLine(ctx, line)
		}
	}
}

func (s *StdioServer) handleLine(ctx context.Context, line string) {
	req, notif, err := decodeEnvelope([]byte(line))
	if err != nil {
		s.writeResponse(errorResponse(protocol.RequestID{}, protocol.CodeParseError, "Parse error", err))
		return
	}

	if notif != nil {
		handleNotification(notif)
		return
	}

	log.Infof("Received request: Method=%s, ID=%s", req.Method, req.ID.String())

	var resp *protocol.Response
	if req.Method == methodInitialize {
		resp = s.handleInitialize(req)
	} else {
		resp = dispatchRequest(ctx, s.dispatcher, req)
	}
	observeRequest(req.Method, resp.Error == nil)
	s.writeResponse(resp)
}

// handleInitialize answers the handshake on the implicit session. No token
// is issued: the pipe itself is the session.
func (s *StdioServer) handleInitialize(req *protocol.Request) *protocol.Response {
	var initParams protocol.InitializeRequest
	if err := json.Unmarshal(req.Params, &initParams); err != nil {
		return errorResponse(req.ID, protocol.CodeInvalidParams, "Invalid params for initialize", err)
	}

	log.Infof("Client '%s' version '%s' connecting with protocol version '%s'",
		initParams.ClientInfo.Name, initParams.ClientInfo.Version, initParams.ProtocolVersion)

	return successResponse(req.ID, protocol.InitializeResult{
		ProtocolVersion: initParams.ProtocolVersion,
		ServerInfo:      s.info,
		Capabilities:    s.capabilities,
	})
}

func (s *StdioServer) writeResponse(resp *protocol.Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := json.NewEncoder(s.out).Encode(resp); err != nil {
		log.Errorf("Error writing response: %v", err)
	}
}
