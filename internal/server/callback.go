package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/sessions"
)

// CallbackHandler handles OAuth2 authorization-code callbacks.
//
// The OAuth state parameter carries the session id, so one callback endpoint
// serves every session concurrently. Implements [Handler] for registration
// with a [Router].
type CallbackHandler struct {
	store    *auth.Store
	registry *sessions.Registry
	logger   *log.Logger
}

// NewCallbackHandler creates a callback handler over the given token store.
// registry may be nil when sessions are not tracked (single-tenant mode).
func NewCallbackHandler(store *auth.Store, registry *sessions.Registry, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{store: store, registry: registry, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Failures render in the browser: the user is looking at this page, not at
// their MCP client, when the flow goes wrong.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sessionID := query.Get("state")
	if sessionID == "" {
		http.Error(w, "Missing state parameter", http.StatusBadRequest)
		return
	}

	if h.registry != nil {
		if _, ok := h.registry.Get(sessionID); !ok {
			h.logger.Warn("callback for unknown session", "session", sessionID)
			http.Error(w, "Unknown or expired session", http.StatusBadRequest)
			return
		}
	}

	code := query.Get("code")
	if code == "" {
		errParam := query.Get("error")
		errDesc := query.Get("error_description")
		h.logger.Warn("authorization denied", "session", sessionID, "error", errParam, "description", errDesc)
		http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errParam, errDesc), http.StatusBadRequest)
		return
	}

	if _, err := h.store.ExchangeCode(r.Context(), sessionID, code); err != nil {
		h.logger.Error("code exchange failed", "session", sessionID, "error", err)
		http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.logger.Info("session authenticated", "session", sessionID)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>Spotify is connected. You can close this window and return to your client.</p>
    </div>
</body>
</html>
`)
}
