package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a cached track row written through from search results.
//
// Cached tracks are keyed by (service, service_id) so repeat searches for the
// same track are deduplicated at the persistence layer.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	name      string
	artist    string
	album     string
	uri       string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a PersistedTrack from a service track summary.
func NewPersistedTrack(sequence int, service string, track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: track.ID,
		name:      track.Name,
		artist:    track.Artist,
		album:     track.Album,
		uri:       track.URI,
		createdAt: now,
		updatedAt: now,
	}
}

// HydratePersistedTrack reconstructs a PersistedTrack from database columns.
func HydratePersistedTrack(id string, sequence int, service, serviceID, name, artist, album, uri string, createdAt, updatedAt time.Time, deletedAt *time.Time) *PersistedTrack {
	return &PersistedTrack{
		id:        id,
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		name:      name,
		artist:    artist,
		album:     album,
		uri:       uri,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) SetID(id string)       { t.id = id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) Service() string       { return t.service }
func (t *PersistedTrack) ServiceID() string     { return t.serviceID }
func (t *PersistedTrack) Name() string          { return t.name }
func (t *PersistedTrack) Artist() string        { return t.artist }
func (t *PersistedTrack) Album() string         { return t.album }
func (t *PersistedTrack) URI() string           { return t.uri }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

// Touch updates the modification timestamp.
func (t *PersistedTrack) Touch() { t.updatedAt = time.Now() }

// Validate checks the invariants required before persistence.
func (t *PersistedTrack) Validate() error {
	if t.id == "" {
		return fmt.Errorf("track id is required")
	}
	if t.service == "" {
		return fmt.Errorf("track service is required")
	}
	if t.serviceID == "" {
		return fmt.Errorf("track service_id is required")
	}
	if t.name == "" {
		return fmt.Errorf("track name is required")
	}
	return nil
}

// Summary converts the persisted row back to the DTO form.
func (t *PersistedTrack) Summary() Track {
	return Track{
		ID:     t.serviceID,
		Name:   t.name,
		Artist: t.artist,
		Album:  t.album,
		URI:    t.uri,
	}
}
