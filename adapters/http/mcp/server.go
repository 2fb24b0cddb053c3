package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// sessionHeader keys the session registry. The server returns it on
// every response; clients echo it to stay on their session.
const sessionHeader = "Mcp-Session-Id"

const serverName = "cms-agent-gateway"

// Server exposes the schema operations as agent tools on one endpoint:
// GET without an event-stream accept returns the capability document,
// GET with one opens the session's SSE stream, POST carries JSON-RPC.
type Server struct {
	catalog      *app.CatalogService
	registration *app.RegistrationService
	health       *app.HealthService
	sessions     *sessionRegistry
	version      string
	logger       zerolog.Logger
}

// Deps contains dependencies for the MCP server.
type Deps struct {
	Catalog      *app.CatalogService
	Registration *app.RegistrationService
	Health       *app.HealthService
	Clock        ports.Clock
	IDs          ports.IDGenerator
	Version      string
	Logger       zerolog.Logger
}

// NewServer creates the tool-call server.
func NewServer(deps Deps) *Server {
	return &Server{
		catalog:      deps.Catalog,
		registration: deps.Registration,
		health:       deps.Health,
		sessions:     newSessionRegistry(deps.Clock, deps.IDs),
		version:      deps.Version,
		logger:       deps.Logger,
	}
}

// ServeHTTP implements the streamable endpoint. Mount it at /api/mcp.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			s.serveStream(w, r)
			return
		}
		s.serveCapabilities(w, r)
	case http.MethodPost:
		s.serveRPC(w, r)
	case http.MethodDelete:
		// Explicit session teardown.
		if id := r.Header.Get(sessionHeader); id != "" {
			s.sessions.drop(id)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// serveCapabilities answers a plain GET with the static discovery
// document, so non-streaming clients can learn what lives here.
func (s *Server) serveCapabilities(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, len(toolOrder))
	copy(names, toolOrder)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":     serverName,
		"version":  s.version,
		"protocol": "mcp",
		"tools":    names,
	})
}

// serveStream opens the session's server-sent event stream and holds it
// until the client goes away. Tool responses for POSTed calls are
// returned on the POST itself; the stream exists for server-initiated
// notifications and as the liveness signal.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout; clear the deadline
	// for this response only.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug().Err(err).Msg("write deadline not adjustable for event stream")
	}

	sess := s.sessions.acquire(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, sess.id)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Debug().Str("session", sess.id).Msg("event stream opened")
	defer func() {
		s.sessions.drop(sess.id)
		s.logger.Debug().Str("session", sess.id).Msg("event stream closed")
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sess.events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// serveRPC handles one JSON-RPC message per POST.
func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, sess.id)

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, json.RawMessage("null"), codeParseError, "parse error: "+err.Error())
		return
	}

	if req.JSONRPC != "2.0" {
		if !req.isNotification() {
			s.writeError(w, req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Notifications get no response body.
	if req.isNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.dispatch(w, r, sess, &req)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, sess *session, req *rpcRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(w, sess, req)
	case "ping":
		s.writeResult(w, req.ID, map[string]any{})
	case "tools/list":
		if !sess.initialized {
			s.writeError(w, req.ID, codeInvalidRequest, "session not initialized (call initialize first)")
			return
		}
		s.writeResult(w, req.ID, toolsListResult{Tools: s.toolDescriptions()})
	case "tools/call":
		if !sess.initialized {
			s.writeError(w, req.ID, codeInvalidRequest, "session not initialized (call initialize first)")
			return
		}
		s.handleToolsCall(w, r, req)
	default:
		s.writeError(w, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, sess *session, req *rpcRequest) {
	if len(req.Params) == 0 {
		s.writeError(w, req.ID, codeInvalidParams, "params required for initialize")
		return
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
		return
	}

	// Answer with our own protocol version; versions are additive and
	// the client decides whether it can proceed.
	sess.initialized = true
	s.logger.Info().Str("client", params.ClientInfo.Name).Str("session", sess.id).Msg("agent session initialized")

	s.writeResult(w, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{}},
		ServerInfo:      serverInfo{Name: serverName, Version: s.version},
	})
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req *rpcRequest) {
	if len(req.Params) == 0 {
		s.writeError(w, req.ID, codeInvalidParams, "params required for tools/call")
		return
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
		return
	}

	handler, ok := s.toolHandler(params.Name)
	if !ok {
		s.writeError(w, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
		return
	}

	s.writeResult(w, req.ID, handler(r, params.Arguments))
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
