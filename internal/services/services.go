// package services defines the Client contract for the Spotify Web API
package services

import (
	"context"
	"time"

	"github.com/desertthunder/spx/internal/models"
)

// Client defines the Spotify Web API operations the server depends on.
//
// Access tokens are passed explicitly on every resource call; implementations
// hold no per-session state.
type Client interface {
	// ExchangeCode exchanges an authorization code for a token set.
	ExchangeCode(ctx context.Context, code string) (*TokenExchange, error)

	// RefreshToken exchanges a refresh token for a fresh token set. The
	// returned RefreshToken may be empty when the upstream omits it.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenExchange, error)

	// SearchTracks searches for tracks matching the query.
	SearchTracks(ctx context.Context, token, query string, limit int) ([]models.Track, error)

	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context, token string) (*models.UserProfile, error)

	// CreatePlaylist creates a playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, token, ownerID, name, description string, public bool) (*models.Playlist, error)

	// AddTracks adds the given track URIs to a playlist and reports the count added.
	AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error)

	// Recommendations returns track suggestions seeded by 1-5 track ids.
	Recommendations(ctx context.Context, token string, seedTrackIDs []string, limit int) ([]models.Track, error)

	// AuthURL returns the user authorization URL with the given OAuth state.
	AuthURL(state string) string

	// Name returns the provider name.
	Name() string
}

// TokenExchange is the result of an authorization-code or refresh-token exchange.
type TokenExchange struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}
