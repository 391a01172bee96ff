package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	spxtest "github.com/desertthunder/spx/internal/testing"
)

func newGate(fake *spxtest.FakeSpotify) *Gate {
	store := NewStore(fake)
	return NewGate(store, fake, shared.NewLogger(io.Discard))
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()

	t.Run("No Record", func(t *testing.T) {
		gate := newGate(&spxtest.FakeSpotify{})

		_, err := gate.ResolveToken(ctx, "s1")
		if !errors.Is(err, ErrAuthRequired) {
			t.Fatalf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Valid Record", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{}
		gate := newGate(fake)
		gate.Store().Put("s1", TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

		token, err := gate.ResolveToken(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "at1" {
			t.Errorf("expected stored token, got %q", token)
		}
		if fake.Refreshes() != 0 {
			t.Errorf("valid token must not trigger a refresh, got %d", fake.Refreshes())
		}
	})

	t.Run("Expired Record Refreshes Once", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{
			RefreshResult: &services.TokenExchange{AccessToken: "T2", Expiry: time.Now().Add(time.Hour)},
		}
		gate := newGate(fake)
		gate.Store().Put("s2", TokenRecord{AccessToken: "T1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(-time.Second)})

		token, err := gate.ResolveToken(ctx, "s2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "T2" {
			t.Errorf("expected refreshed token T2, got %q", token)
		}
		if fake.Refreshes() != 1 {
			t.Errorf("expected exactly one refresh, got %d", fake.Refreshes())
		}
	})

	t.Run("Concurrent Expiry Refreshes Once", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{
			RefreshResult: &services.TokenExchange{AccessToken: "T2", Expiry: time.Now().Add(time.Hour)},
		}
		gate := newGate(fake)
		gate.Store().Put("s2", TokenRecord{AccessToken: "T1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(-time.Second)})

		var wg sync.WaitGroup
		tokens := make([]string, 8)
		for i := range tokens {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				token, err := gate.ResolveToken(ctx, "s2")
				if err != nil {
					t.Errorf("resolve failed: %v", err)
					return
				}
				tokens[i] = token
			}(i)
		}
		wg.Wait()

		if fake.Refreshes() != 1 {
			t.Errorf("expected a single upstream refresh for one expiry event, got %d", fake.Refreshes())
		}
		for i, token := range tokens {
			if token != "T2" {
				t.Errorf("caller %d got %q, want T2", i, token)
			}
		}
	})

	t.Run("Refresh Failure Reverts To AuthRequired", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{
			RefreshErr: &services.UpstreamError{Status: 400, Message: "revoked"},
		}
		gate := newGate(fake)
		gate.Store().Put("s3", TokenRecord{AccessToken: "T1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(-time.Second)})

		_, err := gate.ResolveToken(ctx, "s3")
		if !errors.Is(err, ErrAuthRequired) {
			t.Fatalf("expected ErrAuthRequired after failed refresh, got %v", err)
		}
		if _, ok := gate.Store().Get("s3"); ok {
			t.Error("expected record to be removed after failed refresh")
		}
	})
}

func TestWrap(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthenticated Session", func(t *testing.T) {
		gate := newGate(&spxtest.FakeSpotify{})

		called := false
		result := gate.Wrap(ctx, "s1", func(token string) (string, error) {
			called = true
			return "", nil
		})

		if called {
			t.Error("API call must not run without credentials")
		}
		if result.IsError {
			t.Error("first-time auth prompt must not be an error result")
		}
		if !strings.Contains(result.Text, "state=s1") {
			t.Errorf("expected authorization URL with state=s1, got %q", result.Text)
		}
	})

	t.Run("Successful Call", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{}
		gate := newGate(fake)
		gate.Store().Put("s1", TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

		result := gate.Wrap(ctx, "s1", func(token string) (string, error) {
			return "ok: " + token, nil
		})

		if result.IsError {
			t.Errorf("expected non-error result, got %q", result.Text)
		}
		if result.Text != "ok: at1" {
			t.Errorf("unexpected result text %q", result.Text)
		}
	})

	t.Run("Mid-Call 401 Invalidates And Flags Error", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{}
		gate := newGate(fake)
		gate.Store().Put("s1", TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

		result := gate.Wrap(ctx, "s1", func(token string) (string, error) {
			return "", &services.UnauthorizedError{Message: "token revoked"}
		})

		if !result.IsError {
			t.Error("mid-call invalidation must be an error result")
		}
		if !strings.Contains(result.Text, "state=s1") {
			t.Errorf("expected re-authentication link, got %q", result.Text)
		}
		if _, ok := gate.Store().Get("s1"); ok {
			t.Error("expected token record to be removed after 401")
		}
	})

	t.Run("Other Upstream Failure Leaves Store Untouched", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{}
		gate := newGate(fake)
		gate.Store().Put("s1", TokenRecord{AccessToken: "at1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(time.Hour)})

		result := gate.Wrap(ctx, "s1", func(token string) (string, error) {
			return "", &services.UpstreamError{Status: 429, Message: "rate limited"}
		})

		if !result.IsError {
			t.Error("upstream failure must be an error result")
		}
		if !strings.Contains(result.Text, "rate limited") {
			t.Errorf("expected verbatim upstream message, got %q", result.Text)
		}
		if _, ok := gate.Store().Get("s1"); !ok {
			t.Error("generic failures must not mutate the token store")
		}
	})

	t.Run("Expired Then Refreshed Token Used As Bearer", func(t *testing.T) {
		fake := &spxtest.FakeSpotify{
			RefreshResult: &services.TokenExchange{AccessToken: "T2", Expiry: time.Now().Add(time.Hour)},
		}
		gate := newGate(fake)
		gate.Store().Put("s2", TokenRecord{AccessToken: "T1", RefreshToken: "rt1", ExpiresAt: time.Now().Add(-1000 * time.Millisecond)})

		var seen string
		result := gate.Wrap(ctx, "s2", func(token string) (string, error) {
			seen = token
			return "profile", nil
		})

		if result.IsError {
			t.Fatalf("expected success, got %q", result.Text)
		}
		if seen != "T2" {
			t.Errorf("expected refreshed token T2 as bearer, got %q", seen)
		}
	})
}
