package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKey returns a middleware that requires the X-API-Key header to match
// the configured key. An empty configured key disables the check; the
// service then trusts its network boundary.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"code":401,"message":"invalid or missing API key"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
