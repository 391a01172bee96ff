package services

import "fmt"

// UnauthorizedError reports a 401 from the Spotify API: the bearer token was
// rejected upstream. Callers treat this as a credential invalidation signal.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "spotify: unauthorized"
	}
	return fmt.Sprintf("spotify: unauthorized: %s", e.Message)
}

// UpstreamError reports any other non-2xx Spotify response, carrying the
// upstream message verbatim.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("spotify: %s (status %d)", e.Message, e.Status)
}
