// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
)

// FakeSpotify is a test double for [services.Client].
//
// Every field is optional; unset results yield zero values. Call counters and
// the last bearer token seen are recorded under a mutex so concurrency tests
// can assert on them.
type FakeSpotify struct {
	mu sync.Mutex

	ExchangeResult *services.TokenExchange
	ExchangeErr    error
	RefreshResult  *services.TokenExchange
	RefreshErr     error

	SearchResult []models.Track
	SearchErr    error
	Profile      *models.UserProfile
	ProfileErr   error
	Playlist     *models.Playlist
	PlaylistErr  error
	AddErr       error
	RecsResult   []models.Track
	RecsErr      error

	ExchangeCalls int
	RefreshCalls  int
	LastToken     string
	LastCode      string
	LastRefresh   string
}

func (f *FakeSpotify) record(token string) {
	f.mu.Lock()
	f.LastToken = token
	f.mu.Unlock()
}

func (f *FakeSpotify) ExchangeCode(ctx context.Context, code string) (*services.TokenExchange, error) {
	f.mu.Lock()
	f.ExchangeCalls++
	f.LastCode = code
	f.mu.Unlock()
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	return f.ExchangeResult, nil
}

func (f *FakeSpotify) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenExchange, error) {
	f.mu.Lock()
	f.RefreshCalls++
	f.LastRefresh = refreshToken
	f.mu.Unlock()
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	return f.RefreshResult, nil
}

func (f *FakeSpotify) SearchTracks(ctx context.Context, token, query string, limit int) ([]models.Track, error) {
	f.record(token)
	return f.SearchResult, f.SearchErr
}

func (f *FakeSpotify) CurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	f.record(token)
	return f.Profile, f.ProfileErr
}

func (f *FakeSpotify) CreatePlaylist(ctx context.Context, token, ownerID, name, description string, public bool) (*models.Playlist, error) {
	f.record(token)
	return f.Playlist, f.PlaylistErr
}

func (f *FakeSpotify) AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	f.record(token)
	if f.AddErr != nil {
		return 0, f.AddErr
	}
	return len(uris), nil
}

func (f *FakeSpotify) Recommendations(ctx context.Context, token string, seedTrackIDs []string, limit int) ([]models.Track, error) {
	f.record(token)
	return f.RecsResult, f.RecsErr
}

func (f *FakeSpotify) AuthURL(state string) string {
	return fmt.Sprintf("https://accounts.spotify.com/authorize?client_id=fake&state=%s", state)
}

func (f *FakeSpotify) Name() string { return "Spotify" }

// Refreshes returns the refresh call count under the mutex.
func (f *FakeSpotify) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RefreshCalls
}

// SeenToken returns the last bearer token recorded under the mutex.
func (f *FakeSpotify) SeenToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LastToken
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
