// package sessions owns the mapping from session id to live transport
package sessions

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/shared"
)

// Transport is the live channel carrying protocol traffic for one session.
//
// Closing is terminal and runs the registered cleanup hook exactly once, no
// matter whether the close came from an explicit termination request or the
// underlying connection dropping.
type Transport struct {
	sessionID string

	mu      sync.Mutex
	closed  bool
	once    sync.Once
	onClose func()
}

// SessionID returns the opaque session identifier this transport serves.
func (t *Transport) SessionID() string { return t.sessionID }

// Closed reports whether the transport has been shut down.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// OnClose registers the cleanup hook invoked when the transport closes.
func (t *Transport) OnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = fn
}

// Close marks the transport closed and runs the cleanup hook once.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	fn := t.onClose
	t.mu.Unlock()

	t.once.Do(func() {
		if fn != nil {
			fn()
		}
	})
}

// Registry maps session ids to active transports and keeps the token store
// consistent with transport lifecycle: destroying a session always removes its
// token record, so no credentials outlive their session.
type Registry struct {
	tokens *auth.Store
	logger *log.Logger

	mu         sync.Mutex
	transports map[string]*Transport
}

// NewRegistry creates an empty registry bound to the given token store.
func NewRegistry(tokens *auth.Store, logger *log.Logger) *Registry {
	return &Registry{
		tokens:     tokens,
		logger:     logger,
		transports: make(map[string]*Transport),
	}
}

// Create allocates a fresh session id and registers its transport.
//
// Session ids are always generator-assigned; a client can never pick one. The
// transport's close hook routes back through Destroy so connection-level
// closure and explicit termination share one cleanup path.
func (r *Registry) Create() *Transport {
	id := shared.GenerateID()
	transport := &Transport{sessionID: id}
	transport.OnClose(func() { r.Destroy(id) })

	r.mu.Lock()
	r.transports[id] = transport
	r.mu.Unlock()

	r.logger.Info("session created", "session", id)
	return transport
}

// Get returns the transport for a session, if it is still active.
func (r *Registry) Get(sessionID string) (*Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	transport, ok := r.transports[sessionID]
	return transport, ok
}

// Destroy closes the transport, removes it from the registry, and drops the
// session's token record. Idempotent and safe to invoke from both the
// explicit-deletion path and the transport's own close notification.
func (r *Registry) Destroy(sessionID string) {
	r.mu.Lock()
	transport, ok := r.transports[sessionID]
	delete(r.transports, sessionID)
	r.mu.Unlock()

	r.tokens.Remove(sessionID)

	if ok {
		transport.Close()
		r.logger.Info("session destroyed", "session", sessionID)
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transports)
}

// Shutdown destroys every active session. Used on process teardown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.transports))
	for id := range r.transports {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Destroy(id)
	}
}
