// Package services defines the [Client] contract for the Spotify Web API and implements it.
//
// # Client Contract
//
// [Client] is the capability-typed collaborator the rest of the server talks
// to: authorization-code exchange, refresh-token exchange, and the five
// resource operations the tool catalog exposes (search, profile, playlist
// creation, track addition, recommendations).
//
// # Spotify Implementation
//
// [SpotifyService] uses [oauth2.Config] against accounts.spotify.com for the
// token endpoints and plain bearer requests against api.spotify.com for
// resource calls. Access tokens are passed explicitly per call; the service
// itself holds no credential state, so a single instance is safe to share
// across concurrent sessions.
//
// Outbound resource calls pass through a [rate.Limiter] so bursts of tool
// calls never hammer the API.
//
// # Error Handling
//
// Resource calls fail with exactly two error types, so callers switch on type
// rather than inspecting status codes:
//   - [UnauthorizedError] : HTTP 401, the bearer token was rejected
//   - [UpstreamError] : any other non-2xx response, carrying the verbatim Spotify error message
//
// Token endpoint rejections surface as [UpstreamError] carrying the OAuth
// error_description.
package services
