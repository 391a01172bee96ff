package auth

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/services"
)

// NowFunc returns the current time. It can be overridden in tests.
var NowFunc = time.Now

// TokenRecord is the cached OAuth credential set for one session.
//
// A record is valid only while now < ExpiresAt; once expired it must be
// refreshed before use, never sent upstream directly.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Store holds token records keyed by session id.
//
// The map is mutex-guarded; refreshes additionally take a per-session lock so
// that one expiry event produces exactly one upstream refresh no matter how
// many tool calls observe it concurrently.
type Store struct {
	client services.Client

	mu      sync.Mutex
	records map[string]TokenRecord
	locks   map[string]*sync.Mutex
}

// NewStore creates a Store backed by the given Spotify client.
func NewStore(client services.Client) *Store {
	return &Store{
		client:  client,
		records: make(map[string]TokenRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Get returns the token record for a session, if one exists.
func (s *Store) Get(sessionID string) (TokenRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	return rec, ok
}

// Put stores a token record for a session, overwriting any existing record.
func (s *Store) Put(sessionID string, rec TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = rec
}

// Remove deletes a session's token record. Idempotent.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	delete(s.locks, sessionID)
}

// IsExpired reports whether a record can no longer be used directly.
// A record with no expiry set is treated as expired.
func (s *Store) IsExpired(rec TokenRecord) bool {
	if rec.ExpiresAt.IsZero() {
		return true
	}
	return !NowFunc().Before(rec.ExpiresAt)
}

// refreshLock returns the per-session lock serializing refresh attempts.
func (s *Store) refreshLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// ExchangeCode exchanges an authorization code for a token set and stores the
// resulting record under the session id.
func (s *Store) ExchangeCode(ctx context.Context, sessionID, code string) (TokenRecord, error) {
	exchange, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return TokenRecord{}, &ExchangeError{Description: err.Error(), Err: err}
	}

	rec := TokenRecord{
		AccessToken:  exchange.AccessToken,
		RefreshToken: exchange.RefreshToken,
		ExpiresAt:    exchange.Expiry,
	}

	s.Put(sessionID, rec)
	return rec, nil
}

// Refresh exchanges the stored refresh token for a fresh token set.
//
// When the upstream response omits a refresh token, the prior refresh token is
// retained. On failure the record is removed and the session reverts to the
// unauthenticated state.
func (s *Store) Refresh(ctx context.Context, sessionID string, rec TokenRecord) (TokenRecord, error) {
	if rec.RefreshToken == "" {
		s.Remove(sessionID)
		return TokenRecord{}, &RefreshError{Description: "no refresh token available"}
	}

	exchange, err := s.client.RefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		s.Remove(sessionID)
		return TokenRecord{}, &RefreshError{Description: err.Error(), Err: err}
	}

	refreshed := TokenRecord{
		AccessToken:  exchange.AccessToken,
		RefreshToken: exchange.RefreshToken,
		ExpiresAt:    exchange.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = rec.RefreshToken
	}

	// Skip the write when the session was destroyed while the refresh was in
	// flight; the in-flight caller still gets the refreshed token, but the
	// store must not regain a record for a dead session.
	s.mu.Lock()
	if _, ok := s.records[sessionID]; ok {
		s.records[sessionID] = refreshed
	}
	s.mu.Unlock()

	return refreshed, nil
}
