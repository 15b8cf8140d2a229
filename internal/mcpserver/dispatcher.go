package mcpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/session"
	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

const sessionHeader = "Mcp-Session-Id"
const protocolVersionHeader = "MCP-Protocol-Version"

// HandleRPC implements POST /mcp: header validation, JSON-RPC envelope
// parsing, and method dispatch.
func (s *Server) HandleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	if accept := r.Header.Get("Accept"); accept != "" {
		if !strings.Contains(accept, "application/json") && !strings.Contains(accept, "*/*") {
			http.Error(w, "Accept must admit application/json", http.StatusNotAcceptable)
			return
		}
	}

	if pv := r.Header.Get(protocolVersionHeader); pv != "" && !isSupportedProtocolVersion(pv) {
		http.Error(w, "unsupported MCP-Protocol-Version: "+pv, http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeRPC(w, http.StatusOK, errorResponse(nil, codeParseError, "failed to read request body"))
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeRPC(w, http.StatusOK, errorResponse(nil, codeParseError, "malformed JSON"))
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeRPC(w, http.StatusOK, errorResponse(req.ID, codeInvalidRequest, `jsonrpc must be "2.0"`))
		return
	}
	if req.Method == "" {
		s.writeRPC(w, http.StatusOK, errorResponse(req.ID, codeInvalidRequest, "method is required"))
		return
	}

	isNotification := len(req.ID) == 0

	status, resp := s.dispatch(w, r, req)

	if isNotification {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.writeRPC(w, status, resp)
}

func (s *Server) writeRPC(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error("mcpserver", err, "failed to encode JSON-RPC response")
	}
}

// dispatch routes a parsed envelope to its method handler and returns the
// transport status alongside the JSON-RPC response body. It receives w
// directly so handlers that mint state (initialize) can set response
// headers before the body is written.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req request) (int, response) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(w, r, req)
	case "ping":
		return http.StatusOK, resultResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		return s.handleToolsList(r, req)
	case "tools/call":
		return s.handleToolsCall(r, req)
	default:
		if strings.HasPrefix(req.Method, "notifications/") {
			return http.StatusAccepted, response{}
		}
		return http.StatusOK, errorResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method)
	}
}

// requireSession resolves the caller's session from the Mcp-Session-Id
// header, or reports that one is required per spec §4.5.
func (s *Server) requireSession(r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		return nil, false
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, false
	}

	return sess, true
}
