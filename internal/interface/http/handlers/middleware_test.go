package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestAPIKeyAuth_ValidKeyPasses(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1", "secret-2"})
	h := auth.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
	req.Header.Set("X-API-Key", "secret-2")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_BearerTokenAccepted(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1"})
	h := auth.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
	req.Header.Set("Authorization", "Bearer secret-1")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_MissingKeyRejected(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1"})
	h := auth.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_api_key")
}

func TestAPIKeyAuth_WrongKeyRejected(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1"})
	h := auth.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
	req.Header.Set("X-API-Key", "not-a-key")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_api_key")
}

func TestAPIKeyAuth_RevokedKeyStopsWorking(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1"})
	require.True(t, auth.IsValid("secret-1"))

	auth.RemoveKey("secret-1")
	assert.False(t, auth.IsValid("secret-1"))

	auth.AddKey("secret-3")
	assert.True(t, auth.IsValid("secret-3"))
}

func TestRequestSizeLimit_RejectsOversizedBody(t *testing.T) {
	h := RequestSizeLimitMiddleware(16)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/completions/import",
		strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "payload_too_large")
}

func TestCacheControl_OnlyGetIsCacheable(t *testing.T) {
	h := CacheControlMiddleware(30 * time.Second)(okHandler())

	get := httptest.NewRequest(http.MethodGet, "/api/v1/students/s1/dashboard", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, "private, max-age=30", rec.Header().Get("Cache-Control"))

	post := httptest.NewRequest(http.MethodPost, "/api/v1/students", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestChainHandler_OrderAndShortCircuit(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret-1"})
	h := ChainHandler(okHandler(),
		SecurityHeadersMiddleware,
		NoCacheMiddleware,
		auth.Middleware,
	)

	// Без ключа запрос не доходит до обработчика,
	// но заголовки внешних middleware уже выставлены.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/lessons/l1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/lessons/l1", nil)
	req.Header.Set("X-API-Key", "secret-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
