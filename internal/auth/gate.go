package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/services"
)

// Result is the outcome of a gated API call, shaped for the protocol layer.
//
// IsError distinguishes "was authenticated, now invalid" (and genuine upstream
// failures) from the first-time authentication prompt, which is a normal tool
// response instructing the caller what to do next.
type Result struct {
	Text    string
	IsError bool
}

// Gate mediates token resolution and failure classification around every tool
// call. One Gate serves all sessions; per-session state lives in the Store.
type Gate struct {
	store  *Store
	client services.Client
	logger *log.Logger
}

// NewGate creates a Gate over the given store and Spotify client.
func NewGate(store *Store, client services.Client, logger *log.Logger) *Gate {
	return &Gate{store: store, client: client, logger: logger}
}

// Store exposes the underlying token store.
func (g *Gate) Store() *Store { return g.store }

// ResolveToken returns a usable access token for the session or [ErrAuthRequired].
//
// An expired record triggers exactly one refresh attempt: concurrent callers
// for the same session queue on the per-session lock and reuse the first
// caller's result instead of issuing their own refresh.
func (g *Gate) ResolveToken(ctx context.Context, sessionID string) (string, error) {
	rec, ok := g.store.Get(sessionID)
	if !ok {
		return "", ErrAuthRequired
	}
	if !g.store.IsExpired(rec) {
		return rec.AccessToken, nil
	}

	lock := g.store.refreshLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: a concurrent call may have refreshed already.
	rec, ok = g.store.Get(sessionID)
	if !ok {
		return "", ErrAuthRequired
	}
	if !g.store.IsExpired(rec) {
		return rec.AccessToken, nil
	}

	refreshed, err := g.store.Refresh(ctx, sessionID, rec)
	if err != nil {
		g.logger.Warn("token refresh failed", "session", sessionID, "error", err)
		return "", ErrAuthRequired
	}

	g.logger.Debug("token refreshed", "session", sessionID, "expires_at", refreshed.ExpiresAt)
	return refreshed.AccessToken, nil
}

// Wrap resolves the session's token and invokes the API call with it,
// classifying failures per the taxonomy in the package doc.
func (g *Gate) Wrap(ctx context.Context, sessionID string, call func(token string) (string, error)) Result {
	token, err := g.ResolveToken(ctx, sessionID)
	if errors.Is(err, ErrAuthRequired) {
		return Result{Text: g.authPrompt(sessionID)}
	}

	text, err := call(token)
	if err == nil {
		return Result{Text: text}
	}

	var unauthorized *services.UnauthorizedError
	if errors.As(err, &unauthorized) {
		g.store.Remove(sessionID)
		g.logger.Info("upstream rejected token, session reverted to unauthenticated", "session", sessionID)
		return Result{Text: g.reauthPrompt(sessionID), IsError: true}
	}

	return Result{Text: err.Error(), IsError: true}
}

// authPrompt is the first-time authentication instruction, embedding the
// authorization URL with the session id as OAuth state.
func (g *Gate) authPrompt(sessionID string) string {
	return fmt.Sprintf(
		"Authentication required. Open this link to connect your Spotify account, then retry the request:\n\n%s",
		g.client.AuthURL(sessionID),
	)
}

// reauthPrompt is the mid-call invalidation instruction.
func (g *Gate) reauthPrompt(sessionID string) string {
	return fmt.Sprintf(
		"Your Spotify authorization is no longer valid. Re-authenticate here and retry:\n\n%s",
		g.client.AuthURL(sessionID),
	)
}
