package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/sessions"
	"github.com/desertthunder/spx/internal/tools"
)

// SessionHeader carries the session id on every request after initialization.
const SessionHeader = "Mcp-Session-Id"

// protocolVersion is the default protocol revision offered to clients that do
// not request one.
const protocolVersion = "2025-03-26"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification reports whether the request expects no response.
func (r *rpcRequest) notification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// MCPHandler serves the JSON-RPC protocol endpoint.
//
// POST carries protocol messages, DELETE terminates the session named in the
// header, and GET is refused: this server has no server-push stream.
type MCPHandler struct {
	registry   *sessions.Registry
	dispatcher *tools.Dispatcher
	logger     *log.Logger
	name       string
	version    string

	// authSession, when set, routes every tool call through one shared
	// credential set instead of per-session records.
	authSession string
}

// NewMCPHandler creates the protocol handler. name and version identify the
// server in initialize responses.
func NewMCPHandler(registry *sessions.Registry, dispatcher *tools.Dispatcher, logger *log.Logger, name, version string) *MCPHandler {
	return &MCPHandler{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
		name:       name,
		version:    version,
	}
}

// UseGlobalAuth switches token scoping to a single shared credential set.
// Sessions still isolate transports; only the token record is shared.
func (h *MCPHandler) UseGlobalAuth() {
	h.authSession = tools.GlobalSession
}

// Routes returns the HTTP routes this handler serves.
func (h *MCPHandler) Routes() []string {
	return []string{"/mcp"}
}

// ServeHTTP dispatches by HTTP method.
func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.post(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MCPHandler) post(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()},
		})
		return
	}

	if req.Method == "initialize" && r.Header.Get(SessionHeader) == "" {
		h.initialize(w, req)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		writeRPC(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidRequest, Message: "missing " + SessionHeader + " header"},
		})
		return
	}

	if _, ok := h.registry.Get(sessionID); !ok {
		writeRPC(w, http.StatusNotFound, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidRequest, Message: "unknown session"},
		})
		return
	}

	switch req.Method {
	case "initialize":
		h.initializeResult(w, req)
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
	case "ping":
		writeRPC(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}})
	case "tools/list":
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Result: map[string]any{"tools": h.dispatcher.Tools()},
		})
	case "tools/call":
		h.call(w, r, req, sessionID)
	default:
		if req.notification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method},
		})
	}
}

// initialize bootstraps a new session: the only POST accepted without a
// session header. The assigned id travels back in the response header.
func (h *MCPHandler) initialize(w http.ResponseWriter, req rpcRequest) {
	transport := h.registry.Create()
	w.Header().Set(SessionHeader, transport.SessionID())
	h.initializeResult(w, req)
}

func (h *MCPHandler) initializeResult(w http.ResponseWriter, req rpcRequest) {
	var params initializeParams
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}
	version := params.ProtocolVersion
	if version == "" {
		version = protocolVersion
	}

	writeRPC(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0", ID: req.ID,
		Result: map[string]any{
			"protocolVersion": version,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": h.name, "version": h.version},
		},
	})
}

func (h *MCPHandler) call(w http.ResponseWriter, r *http.Request, req rpcRequest, sessionID string) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidParams, Message: "tools/call requires a tool name"},
		})
		return
	}

	dispatchID := sessionID
	if h.authSession != "" {
		dispatchID = h.authSession
	}

	h.logger.Debug("tool call", "session", dispatchID, "tool", params.Name)

	result, ok := h.dispatcher.Call(r.Context(), dispatchID, params.Name, params.Arguments)
	if !ok {
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidParams, Message: "unknown tool: " + params.Name},
		})
		return
	}

	writeRPC(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0", ID: req.ID,
		Result: callResult{
			Content: []contentBlock{{Type: "text", Text: result.Text}},
			IsError: result.IsError,
		},
	})
}

// delete terminates the session named in the header.
func (h *MCPHandler) delete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		http.Error(w, "missing "+SessionHeader+" header", http.StatusBadRequest)
		return
	}
	if _, ok := h.registry.Get(sessionID); !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	h.registry.Destroy(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func writeRPC(w http.ResponseWriter, status int, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
