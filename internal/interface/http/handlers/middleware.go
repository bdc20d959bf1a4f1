package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// АУТЕНТИФИКАЦИЯ ПО API-КЛЮЧУ
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth защищает административные маршруты каталога.
// Ключ передаётся либо в заголовке (по умолчанию X-API-Key),
// либо как Bearer-токен в Authorization.
type APIKeyAuth struct {
	headerName string
	keys       [][]byte
	mu         sync.RWMutex
}

// NewAPIKeyAuth creates an authenticator for the given header and key set.
// Empty keys are ignored.
func NewAPIKeyAuth(headerName string, keys []string) *APIKeyAuth {
	a := &APIKeyAuth{headerName: headerName}
	for _, key := range keys {
		if key != "" {
			a.keys = append(a.keys, []byte(key))
		}
	}
	return a
}

// AddKey registers an additional valid key at runtime.
func (a *APIKeyAuth) AddKey(key string) {
	if key == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, []byte(key))
}

// RemoveKey revokes a key.
func (a *APIKeyAuth) RemoveKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.keys[:0]
	for _, k := range a.keys {
		if string(k) != key {
			kept = append(kept, k)
		}
	}
	a.keys = kept
}

// IsValid reports whether the key matches a registered one.
// Сравнение за константное время, чтобы не подсвечивать ключи таймингом.
func (a *APIKeyAuth) IsValid(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	candidate := []byte(key)
	for _, k := range a.keys {
		if len(k) == len(candidate) && subtle.ConstantTimeCompare(k, candidate) == 1 {
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid API key.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(a.headerName)
		if key == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			writeAuthError(w, "missing_api_key", "API key is required")
			return
		}
		if !a.IsValid(key) {
			writeAuthError(w, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}

// ══════════════════════════════════════════════════════════════════════════════
// ЗАГОЛОВКИ ОТВЕТА
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware sets the standard hardening headers for a JSON API.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// NoCacheMiddleware is used on administrative endpoints where a stale
// response would hide a just-published lesson or a fresh recompute.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// CacheControlMiddleware marks GET responses as privately cacheable.
// Дашборд студента можно отдавать из кэша браузера на короткое время.
func CacheControlMiddleware(maxAge time.Duration) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control",
					"private, max-age="+strconv.Itoa(int(maxAge.Seconds())))
			} else {
				w.Header().Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ОГРАНИЧЕНИЕ РАЗМЕРА ТЕЛА
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware rejects oversized payloads before handlers
// start decoding them. Bulk completion imports set the practical ceiling.
func RequestSizeLimitMiddleware(maxBytes int64) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":"payload_too_large","message":"Request body too large"}`))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ЦЕПОЧКА MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain composes middleware so the first listed runs first.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ChainHandler chains middleware and wraps a final handler.
func ChainHandler(handler http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	return Chain(middlewares...)(handler)
}
