// Package server provides HTTP routing, middleware, and the protocol surface
// of the multi-tenant mode.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Protocol Endpoint
//
// [MCPHandler] serves JSON-RPC 2.0 over POST /mcp. The first initialize call
// carries no session header; the handler allocates a session and returns its
// id in the Mcp-Session-Id response header. Every subsequent request must
// present that header, and DELETE /mcp tears the session down. There is no
// server-push stream, so GET /mcp answers 405.
//
// # OAuth Callback Handler
//
// [CallbackHandler] receives the authorization code at /callback with the
// session id in the OAuth state parameter, exchanges the code through the
// token store, and renders a small HTML confirmation page. Failures render
// visibly in the browser since the user is mid-flow there, not in the client.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
