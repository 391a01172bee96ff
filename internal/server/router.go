package server

import "net/http"

// BasicRouter implements [Router] on top of [http.ServeMux].
//
// Method scoping is delegated to the mux's "METHOD /path" patterns, so a
// request that matches a registered path with the wrong method gets the
// mux's 405 response.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewBasicRouter creates an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use adds middleware to the router's stack. Handlers are wrapped at
// registration time, so Use must come before Handle and Handler.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler scoped to one HTTP method. An empty method
// registers the bare path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	pattern := path
	if method != "" {
		pattern = method + " " + path
	}
	r.mux.Handle(pattern, r.wrap(handler))
}

// Handler registers a custom [Handler] on every route it serves.
//
// Routes are registered without a method scope: handlers that multiplex
// several methods on one path filter internally.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.wrap(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// wrap applies the middleware stack so the first middleware added is the
// outermost.
func (r *BasicRouter) wrap(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
