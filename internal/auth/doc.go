// Package auth owns the OAuth token lifecycle for MCP sessions.
//
// # Token Store
//
// [Store] maps session ids to [TokenRecord] values and is the single authority
// on token validity. Expiry is judged by local timestamp comparison against
// the expiry computed at issuance; the API is never probed just to check a
// token. Refreshing is serialized per session: when several in-flight tool
// calls observe the same expired record, exactly one performs the upstream
// refresh and the rest reuse its result.
//
// # Auth Gate
//
// [Gate] is the single choke point between tool dispatch and the Spotify
// client. [Gate.ResolveToken] yields a usable access token or
// [ErrAuthRequired]; [Gate.Wrap] turns that outcome plus the API call's
// result into a tool-facing [Result]:
//
//   - never authenticated: a NON-error result prompting the user to open the
//     authorization URL (the session id rides along as OAuth state)
//   - token rejected mid-call (upstream 401): the record is dropped and an
//     ERROR result carries a re-authentication link
//   - any other upstream failure: an error result with the verbatim message,
//     leaving the stored token untouched
package auth
