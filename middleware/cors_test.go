package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	allowed := []string{"https://app.example"}

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://app.example")
		rr := httptest.NewRecorder()
		CORS(allowed, false)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin in production", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		CORS(allowed, false)(next).ServeHTTP(rr, req)

		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin in development", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:4000")
		rr := httptest.NewRecorder()
		CORS(allowed, true)(next).ServeHTTP(rr, req)

		assert.Equal(t, "http://localhost:4000", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/departments", nil)
		req.Header.Set("Origin", "https://app.example")
		rr := httptest.NewRecorder()
		CORS(allowed, false)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
	})
}
