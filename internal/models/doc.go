// Package models defines domain entities for the Spotify MCP service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs shaped from Spotify Web API responses
//   - [Track] : Song metadata with URI for playlist operations
//   - [Playlist] : Playlist metadata returned on creation
//   - [UserProfile] : The authenticated user's profile
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached tracks written through from search results
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
