// package tools defines the tool catalog and dispatches calls through the auth gate
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
)

// TrackSaver persists tracks seen in API responses. Saving is best-effort:
// failures are logged and never fail the tool call.
type TrackSaver interface {
	SaveTracks(ctx context.Context, tracks []models.Track) error
}

// Tool describes a catalog entry for protocol listings.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// SearchTracksArgs are the arguments for search-tracks.
type SearchTracksArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// CreatePlaylistArgs are the arguments for create-playlist.
type CreatePlaylistArgs struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public,omitempty"`
}

// AddTracksArgs are the arguments for add-tracks-to-playlist.
type AddTracksArgs struct {
	PlaylistID string   `json:"playlistId"`
	TrackURIs  []string `json:"trackUris"`
}

// RecommendationsArgs are the arguments for get-recommendations.
type RecommendationsArgs struct {
	SeedTracks []string `json:"seedTracks"`
	Limit      int      `json:"limit,omitempty"`
}

// Dispatcher executes tool calls for any session. The session id arrives as an
// explicit argument on every call; the dispatcher itself holds no per-session
// state.
type Dispatcher struct {
	gate   *auth.Gate
	client services.Client
	cache  TrackSaver
	logger *log.Logger
}

// NewDispatcher creates a Dispatcher. cache may be nil when no database is
// configured.
func NewDispatcher(gate *auth.Gate, client services.Client, cache TrackSaver, logger *log.Logger) *Dispatcher {
	return &Dispatcher{gate: gate, client: client, cache: cache, logger: logger}
}

// Tools returns the catalog for tools/list responses.
func (d *Dispatcher) Tools() []Tool {
	return []Tool{
		{
			Name:        "search-tracks",
			Description: "Search Spotify for tracks by name, artist, or album.",
			InputSchema: objectSchema(map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
				"limit": map[string]any{"type": "integer", "description": "Max results (1-50, default 10)"},
			}, "query"),
		},
		{
			Name:        "get-current-user",
			Description: "Fetch the authenticated user's Spotify profile.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "create-playlist",
			Description: "Create a playlist owned by the authenticated user.",
			InputSchema: objectSchema(map[string]any{
				"name":        map[string]any{"type": "string", "description": "Playlist name"},
				"description": map[string]any{"type": "string", "description": "Playlist description"},
				"public":      map[string]any{"type": "boolean", "description": "Whether the playlist is public (default false)"},
			}, "name"),
		},
		{
			Name:        "add-tracks-to-playlist",
			Description: "Add tracks to an existing playlist by URI.",
			InputSchema: objectSchema(map[string]any{
				"playlistId": map[string]any{"type": "string", "description": "Target playlist id"},
				"trackUris":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Spotify track URIs"},
			}, "playlistId", "trackUris"),
		},
		{
			Name:        "get-recommendations",
			Description: "Get track recommendations seeded by up to five track ids.",
			InputSchema: objectSchema(map[string]any{
				"seedTracks": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Seed track ids (1-5)"},
				"limit":      map[string]any{"type": "integer", "description": "Max results (1-100, default 20)"},
			}, "seedTracks"),
		},
	}
}

// Call dispatches a named tool for the given session. The second return value
// is false when the tool name is unknown; the protocol layer turns that into
// a method-level error rather than a tool result.
func (d *Dispatcher) Call(ctx context.Context, sessionID, name string, raw json.RawMessage) (auth.Result, bool) {
	switch name {
	case "search-tracks":
		var args SearchTracksArgs
		if err := decode(raw, &args); err != nil {
			return invalidArgs(err), true
		}
		return d.SearchTracks(ctx, sessionID, args), true
	case "get-current-user":
		return d.CurrentUser(ctx, sessionID), true
	case "create-playlist":
		var args CreatePlaylistArgs
		if err := decode(raw, &args); err != nil {
			return invalidArgs(err), true
		}
		return d.CreatePlaylist(ctx, sessionID, args), true
	case "add-tracks-to-playlist":
		var args AddTracksArgs
		if err := decode(raw, &args); err != nil {
			return invalidArgs(err), true
		}
		return d.AddTracks(ctx, sessionID, args), true
	case "get-recommendations":
		var args RecommendationsArgs
		if err := decode(raw, &args); err != nil {
			return invalidArgs(err), true
		}
		return d.Recommendations(ctx, sessionID, args), true
	default:
		return auth.Result{}, false
	}
}

// SearchTracks runs the search-tracks tool.
func (d *Dispatcher) SearchTracks(ctx context.Context, sessionID string, args SearchTracksArgs) auth.Result {
	if args.Query == "" {
		return invalidArgs(fmt.Errorf("query is required"))
	}
	if args.Limit == 0 {
		args.Limit = 10
	}
	if args.Limit < 1 || args.Limit > 50 {
		return invalidArgs(fmt.Errorf("limit must be between 1 and 50, got %d", args.Limit))
	}

	return d.gate.Wrap(ctx, sessionID, func(token string) (string, error) {
		tracks, err := d.client.SearchTracks(ctx, token, args.Query, args.Limit)
		if err != nil {
			return "", err
		}
		d.saveTracks(ctx, tracks)
		return formatter.Tracks(fmt.Sprintf("Search results for %q", args.Query), tracks), nil
	})
}

// CurrentUser runs the get-current-user tool.
func (d *Dispatcher) CurrentUser(ctx context.Context, sessionID string) auth.Result {
	return d.gate.Wrap(ctx, sessionID, func(token string) (string, error) {
		profile, err := d.client.CurrentUser(ctx, token)
		if err != nil {
			return "", err
		}
		return formatter.Profile(profile), nil
	})
}

// CreatePlaylist runs the create-playlist tool. The owner id comes from the
// authenticated user's profile, fetched with the same bearer token.
func (d *Dispatcher) CreatePlaylist(ctx context.Context, sessionID string, args CreatePlaylistArgs) auth.Result {
	if args.Name == "" {
		return invalidArgs(fmt.Errorf("name is required"))
	}

	return d.gate.Wrap(ctx, sessionID, func(token string) (string, error) {
		profile, err := d.client.CurrentUser(ctx, token)
		if err != nil {
			return "", err
		}
		playlist, err := d.client.CreatePlaylist(ctx, token, profile.ID, args.Name, args.Description, args.Public)
		if err != nil {
			return "", err
		}
		return formatter.Playlist(playlist), nil
	})
}

// AddTracks runs the add-tracks-to-playlist tool.
func (d *Dispatcher) AddTracks(ctx context.Context, sessionID string, args AddTracksArgs) auth.Result {
	if args.PlaylistID == "" {
		return invalidArgs(fmt.Errorf("playlistId is required"))
	}
	if len(args.TrackURIs) == 0 {
		return invalidArgs(fmt.Errorf("trackUris must not be empty"))
	}

	return d.gate.Wrap(ctx, sessionID, func(token string) (string, error) {
		count, err := d.client.AddTracks(ctx, token, args.PlaylistID, args.TrackURIs)
		if err != nil {
			return "", err
		}
		return formatter.TracksAdded(args.PlaylistID, count), nil
	})
}

// Recommendations runs the get-recommendations tool.
func (d *Dispatcher) Recommendations(ctx context.Context, sessionID string, args RecommendationsArgs) auth.Result {
	if len(args.SeedTracks) < 1 || len(args.SeedTracks) > 5 {
		return invalidArgs(fmt.Errorf("seedTracks must contain between 1 and 5 track ids, got %d", len(args.SeedTracks)))
	}
	if args.Limit == 0 {
		args.Limit = 20
	}
	if args.Limit < 1 || args.Limit > 100 {
		return invalidArgs(fmt.Errorf("limit must be between 1 and 100, got %d", args.Limit))
	}

	return d.gate.Wrap(ctx, sessionID, func(token string) (string, error) {
		tracks, err := d.client.Recommendations(ctx, token, args.SeedTracks, args.Limit)
		if err != nil {
			return "", err
		}
		d.saveTracks(ctx, tracks)
		return formatter.Tracks("Recommendations", tracks), nil
	})
}

func (d *Dispatcher) saveTracks(ctx context.Context, tracks []models.Track) {
	if d.cache == nil || len(tracks) == 0 {
		return
	}
	if err := d.cache.SaveTracks(ctx, tracks); err != nil {
		d.logger.Warn("track cache write failed", "count", len(tracks), "error", err)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func invalidArgs(err error) auth.Result {
	return auth.Result{Text: fmt.Sprintf("invalid arguments: %v", err), IsError: true}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
