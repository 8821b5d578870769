package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// contextKey is the private type for context values set by the middleware.
type contextKey string

// WriteKeyContextKey carries the authenticated write key through the
// request context.
const WriteKeyContextKey contextKey = "write_key"

// WriteKeyFromContext returns the authenticated write key, if any.
func WriteKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(WriteKeyContextKey).(string)
	return key, ok
}

// WriteKeyAuth returns middleware that authenticates requests against the
// configured write keys. The key is read from the X-Write-Key header, or
// from the basic-auth username as a fallback. When auth is disabled the
// supplied key (possibly empty) still flows into the context so rate
// limiting can key on it.
func WriteKeyAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Write-Key")
			if key == "" {
				if user, _, ok := r.BasicAuth(); ok {
					key = user
				}
			}

			if cfg.Enabled && !keyAccepted(key, cfg.WriteKeys) {
				http.Error(w, "invalid write key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), WriteKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func keyAccepted(key string, accepted []string) bool {
	if key == "" {
		return false
	}
	for _, candidate := range accepted {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

// PerKeyRateLimit returns middleware that rate limits requests per write
// key using a token bucket. Requests without a write key share one bucket.
func PerKeyRateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.PerKeyRPS), cfg.PerKeyBurst)
		limiters[key] = l
		return l
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _ := WriteKeyFromContext(r.Context())
			if !limiterFor(key).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit returns middleware that caps request body size.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
