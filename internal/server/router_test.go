package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// echoHandler serves every method on each of its routes.
type echoHandler struct {
	routes []string
}

func (e *echoHandler) Routes() []string { return e.routes }

func (e *echoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Echo-Method", r.Method)
	w.WriteHeader(http.StatusOK)
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Scoped Routes", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/health", HealthHandler())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for GET /health, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST /health, got %d", rec.Code)
		}
	})

	t.Run("Handler Routes Serve Every Method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(&echoHandler{routes: []string{"/mcp", "/callback"}})

		for _, method := range []string{http.MethodPost, http.MethodDelete} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, "/mcp", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("expected %s /mcp to reach the handler, got %d", method, rec.Code)
			}
			if rec.Header().Get("X-Echo-Method") != method {
				t.Errorf("expected method %s to pass through, got %q", method, rec.Header().Get("X-Echo-Method"))
			}
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected second route to be registered, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/health", HealthHandler())

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("expected first-added middleware to run outermost, got %v", order)
		}
	})

	t.Run("Unknown Path", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/health", HealthHandler())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unregistered path, got %d", rec.Code)
		}
	})
}
