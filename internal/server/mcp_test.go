package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/sessions"
	"github.com/desertthunder/spx/internal/shared"
	spxtest "github.com/desertthunder/spx/internal/testing"
	"github.com/desertthunder/spx/internal/tools"
)

type rpcReply struct {
	JSONRPC string         `json:"jsonrpc"`
	Result  map[string]any `json:"result"`
	Error   *rpcError      `json:"error"`
}

func newMCPHandler(fake *spxtest.FakeSpotify) (*MCPHandler, *sessions.Registry, *auth.Store) {
	logger := shared.NewLogger(io.Discard)
	store := auth.NewStore(fake)
	registry := sessions.NewRegistry(store, logger)
	gate := auth.NewGate(store, fake, logger)
	dispatcher := tools.NewDispatcher(gate, fake, nil, logger)
	return NewMCPHandler(registry, dispatcher, logger, "spx", "0.1.0"), registry, store
}

func postRPC(handler http.Handler, sessionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) rpcReply {
	t.Helper()
	var reply rpcReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return reply
}

func TestInitialize(t *testing.T) {
	t.Run("Bootstraps A Session", func(t *testing.T) {
		handler, registry, _ := newMCPHandler(&spxtest.FakeSpotify{})

		rec := postRPC(handler, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		sessionID := rec.Header().Get(SessionHeader)
		if sessionID == "" {
			t.Fatal("expected session id in response header")
		}
		if _, ok := registry.Get(sessionID); !ok {
			t.Error("expected session to be registered")
		}

		reply := decodeReply(t, rec)
		info, _ := reply.Result["serverInfo"].(map[string]any)
		if info["name"] != "spx" {
			t.Errorf("expected serverInfo name, got %v", reply.Result)
		}
	})

	t.Run("Missing Header On Other Methods", func(t *testing.T) {
		handler, _, _ := newMCPHandler(&spxtest.FakeSpotify{})

		rec := postRPC(handler, "", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for headerless request, got %d", rec.Code)
		}
	})

	t.Run("Unknown Session", func(t *testing.T) {
		handler, _, _ := newMCPHandler(&spxtest.FakeSpotify{})

		rec := postRPC(handler, "nope", `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown session, got %d", rec.Code)
		}
	})

	t.Run("Parse Error", func(t *testing.T) {
		handler, _, _ := newMCPHandler(&spxtest.FakeSpotify{})

		rec := postRPC(handler, "", `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		reply := decodeReply(t, rec)
		if reply.Error == nil || reply.Error.Code != codeParseError {
			t.Errorf("expected parse error code, got %+v", reply.Error)
		}
	})
}

func TestProtocolMethods(t *testing.T) {
	handler, registry, _ := newMCPHandler(&spxtest.FakeSpotify{})
	sessionID := registry.Create().SessionID()

	t.Run("Ping", func(t *testing.T) {
		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Initialized Notification", func(t *testing.T) {
		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
		if rec.Code != http.StatusAccepted {
			t.Errorf("expected 202 for notification, got %d", rec.Code)
		}
	})

	t.Run("Tools List", func(t *testing.T) {
		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

		reply := decodeReply(t, rec)
		listed, _ := reply.Result["tools"].([]any)
		if len(listed) != 5 {
			t.Errorf("expected 5 tools, got %d", len(listed))
		}
	})

	t.Run("Unknown Method", func(t *testing.T) {
		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)

		reply := decodeReply(t, rec)
		if reply.Error == nil || reply.Error.Code != codeMethodNotFound {
			t.Errorf("expected method-not-found, got %+v", reply.Error)
		}
	})

	t.Run("GET Refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for GET, got %d", rec.Code)
		}
	})
}

func TestToolsCall(t *testing.T) {
	t.Run("Unauthenticated Search Prompts Without Error", func(t *testing.T) {
		handler, registry, _ := newMCPHandler(&spxtest.FakeSpotify{})
		sessionID := registry.Create().SessionID()

		body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search-tracks","arguments":{"query":"test","limit":10}}}`
		rec := postRPC(handler, sessionID, body)

		reply := decodeReply(t, rec)
		if reply.Error != nil {
			t.Fatalf("auth prompt must be a tool result, got protocol error %+v", reply.Error)
		}
		if isErr, _ := reply.Result["isError"].(bool); isErr {
			t.Error("first-time auth prompt must not be error-flagged")
		}
		content, _ := reply.Result["content"].([]any)
		block, _ := content[0].(map[string]any)
		text, _ := block["text"].(string)
		if !strings.Contains(text, "state="+sessionID) {
			t.Errorf("expected authorization URL with session state, got %q", text)
		}
	})

	t.Run("Authenticated Call", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{Profile: &models.UserProfile{ID: "user1", DisplayName: "Tester"}}
		handler, registry, store := newMCPHandler(fake)
		sessionID := registry.Create().SessionID()
		store.Put(sessionID, auth.TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get-current-user"}}`)

		reply := decodeReply(t, rec)
		content, _ := reply.Result["content"].([]any)
		block, _ := content[0].(map[string]any)
		text, _ := block["text"].(string)
		if !strings.Contains(text, "Tester") {
			t.Errorf("expected profile text, got %q", text)
		}
	})

	t.Run("Unknown Tool", func(t *testing.T) {
		handler, registry, _ := newMCPHandler(&spxtest.FakeSpotify{})
		sessionID := registry.Create().SessionID()

		rec := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope"}}`)

		reply := decodeReply(t, rec)
		if reply.Error == nil || reply.Error.Code != codeInvalidParams {
			t.Errorf("expected invalid-params for unknown tool, got %+v", reply.Error)
		}
	})
}

func TestSessionTermination(t *testing.T) {
	t.Run("DELETE Destroys Session And Tokens", func(t *testing.T) {
		handler, registry, store := newMCPHandler(&spxtest.FakeSpotify{})
		sessionID := registry.Create().SessionID()
		store.Put(sessionID, auth.TokenRecord{AccessToken: "at1", ExpiresAt: time.Now().Add(time.Hour)})

		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set(SessionHeader, sessionID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if _, ok := store.Get(sessionID); ok {
			t.Error("expected token record to be removed with the session")
		}

		after := postRPC(handler, sessionID, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		if after.Code != http.StatusNotFound {
			t.Errorf("expected 404 after termination, got %d", after.Code)
		}
	})

	t.Run("DELETE Unknown Session", func(t *testing.T) {
		handler, _, _ := newMCPHandler(&spxtest.FakeSpotify{})

		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set(SessionHeader, "nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("DELETE Without Header", func(t *testing.T) {
		handler, _, _ := newMCPHandler(&spxtest.FakeSpotify{})

		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGlobalAuthMode(t *testing.T) {
	fake := &spxtest.FakeSpotify{Profile: &models.UserProfile{ID: "user1"}}
	handler, registry, store := newMCPHandler(fake)
	handler.UseGlobalAuth()
	store.Put(tools.GlobalSession, auth.TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get-current-user"}}`

	for _, sessionID := range []string{registry.Create().SessionID(), registry.Create().SessionID()} {
		rec := postRPC(handler, sessionID, body)
		reply := decodeReply(t, rec)
		content, _ := reply.Result["content"].([]any)
		block, _ := content[0].(map[string]any)
		if text, _ := block["text"].(string); !strings.Contains(text, "user1") {
			t.Errorf("expected shared credentials to serve session %s, got %q", sessionID, text)
		}
	}
}

func TestSessionIsolation(t *testing.T) {
	fake := &spxtest.FakeSpotify{Profile: &models.UserProfile{ID: "user1"}}
	handler, registry, store := newMCPHandler(fake)

	authed := registry.Create().SessionID()
	other := registry.Create().SessionID()
	store.Put(authed, auth.TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get-current-user"}}`

	rec := postRPC(handler, other, body)
	reply := decodeReply(t, rec)
	content, _ := reply.Result["content"].([]any)
	block, _ := content[0].(map[string]any)
	text, _ := block["text"].(string)
	if !strings.Contains(text, fmt.Sprintf("state=%s", other)) {
		t.Errorf("expected the unauthenticated session to be prompted, got %q", text)
	}

	rec = postRPC(handler, authed, body)
	reply = decodeReply(t, rec)
	content, _ = reply.Result["content"].([]any)
	block, _ = content[0].(map[string]any)
	if text, _ := block["text"].(string); !strings.Contains(text, "user1") {
		t.Errorf("expected the authenticated session to reach the API, got %q", text)
	}
}
