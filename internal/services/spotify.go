// Spotify API implementation of [Client]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Courtesy pacing for outbound resource calls.
	requestsPerSecond = 10
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Followers   followers `json:"followers"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// spotifyErrorBody is the error envelope Spotify wraps non-2xx responses in.
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements the [Client] interface for Spotify Web API interactions.
// Uses [oauth2] for the token endpoints and explicit bearer tokens for resource calls.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
//
// The state parameter carries the session id so the callback can route the
// authorization code back to the right session.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for a token set.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*TokenExchange, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, tokenEndpointError(err)
	}

	return &TokenExchange{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// RefreshToken exchanges a refresh token for a fresh token set.
//
// [oauth2.Config.TokenSource] carries the prior refresh token forward when the
// response omits one, so RefreshToken in the result is always usable.
func (s *SpotifyService) RefreshToken(ctx context.Context, refreshToken string) (*TokenExchange, error) {
	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, tokenEndpointError(err)
	}

	return &TokenExchange{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// tokenEndpointError maps oauth2 retrieval failures to an [UpstreamError]
// carrying the OAuth error_description.
func tokenEndpointError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		message := retrieveErr.ErrorDescription
		if message == "" {
			message = retrieveErr.ErrorCode
		}
		if message == "" {
			message = strings.TrimSpace(string(retrieveErr.Body))
		}

		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}

		return &UpstreamError{Status: status, Message: message}
	}

	return fmt.Errorf("token endpoint request failed: %w", err)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// Non-2xx responses decode the Spotify error envelope and come back as
// [UnauthorizedError] or [UpstreamError].
func (s *SpotifyService) doRequest(ctx context.Context, token, method, endpoint string, body any, result any) error {
	if token == "" {
		return &UnauthorizedError{Message: "no access token provided"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request cancelled: %w", err)
	}

	apiURL := spotifyBaseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody spotifyErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)

		if resp.StatusCode == http.StatusUnauthorized {
			return &UnauthorizedError{Message: errBody.Error.Message}
		}
		return &UpstreamError{Status: resp.StatusCode, Message: errBody.Error.Message}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SearchTracks searches Spotify for tracks matching the query.
func (s *SpotifyService) SearchTracks(ctx context.Context, token, query string, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return mapTracks(response.Tracks.Items), nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Followers:   user.Followers.Total,
	}, nil
}

// CreatePlaylist creates a playlist owned by ownerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token, ownerID, name, description string, public bool) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name is required")
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, payload, &playlist); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:   playlist.ID,
		Name: playlist.Name,
		URL:  playlist.ExternalURLs.Spotify,
	}, nil
}

// AddTracks adds the given track URIs to a playlist.
//
// Spotify acknowledges the whole batch with a snapshot id, so the count added
// is the length of the accepted batch.
func (s *SpotifyService) AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	if len(uris) == 0 {
		return 0, fmt.Errorf("no track URIs provided")
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	payload := map[string]any{"uris": uris}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}

	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, payload, &response); err != nil {
		return 0, err
	}

	return len(uris), nil
}

// Recommendations returns track suggestions seeded by 1-5 track ids.
func (s *SpotifyService) Recommendations(ctx context.Context, token string, seedTrackIDs []string, limit int) ([]models.Track, error) {
	if len(seedTrackIDs) == 0 {
		return nil, fmt.Errorf("at least one seed track is required")
	}
	if len(seedTrackIDs) > 5 {
		return nil, fmt.Errorf("maximum 5 seed tracks allowed")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	seeds := strings.Join(seedTrackIDs, ",")
	endpoint := fmt.Sprintf("/recommendations?seed_tracks=%s&limit=%d", url.QueryEscape(seeds), limit)

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return mapTracks(response.Tracks), nil
}

// mapTracks converts Spotify track payloads to [models.Track] summaries.
func mapTracks(items []SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		track := models.Track{
			ID:    item.ID,
			Name:  item.Name,
			Album: item.Album.Name,
			URI:   item.URI,
		}
		if len(item.Artists) > 0 {
			track.Artist = item.Artists[0].Name
		}
		tracks = append(tracks, track)
	}
	return tracks
}
