// package formatter renders API results as plain text for tool responses
package formatter

import (
	"bytes"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// Tracks renders a numbered track listing under the given heading.
func Tracks(heading string, tracks []models.Track) string {
	var buf bytes.Buffer

	if len(tracks) == 0 {
		buf.WriteString(fmt.Sprintf("%s: no results\n", heading))
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("%s (%d):\n\n", heading, len(tracks)))
	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n   uri: %s\n", i+1, track.Artist, track.Name, albumPart, track.URI))
	}

	return buf.String()
}

// Profile renders the current user's profile.
func Profile(profile *models.UserProfile) string {
	var buf bytes.Buffer

	name := profile.DisplayName
	if name == "" {
		name = profile.ID
	}

	buf.WriteString(fmt.Sprintf("Profile: %s (id: %s)\n", name, profile.ID))
	if profile.Email != "" {
		buf.WriteString(fmt.Sprintf("Email: %s\n", profile.Email))
	}
	if profile.Country != "" {
		buf.WriteString(fmt.Sprintf("Country: %s\n", profile.Country))
	}
	buf.WriteString(fmt.Sprintf("Followers: %d\n", profile.Followers))

	return buf.String()
}

// Playlist renders a newly created playlist.
func Playlist(playlist *models.Playlist) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Created playlist %q (id: %s)\n", playlist.Name, playlist.ID))
	if playlist.URL != "" {
		buf.WriteString(fmt.Sprintf("URL: %s\n", playlist.URL))
	}

	return buf.String()
}

// TracksAdded renders the add-tracks confirmation with the exact count.
func TracksAdded(playlistID string, count int) string {
	return fmt.Sprintf("Added %d tracks to playlist %s\n", count, playlistID)
}
