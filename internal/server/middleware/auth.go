package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Auth guards the API behind a single static key, accepted either as a
// Bearer token or in the X-API-Key header. An empty key leaves the API open;
// a localhost-only terminal typically runs without one.
func Auth(apiKey string) func(http.Handler) http.Handler {
	if apiKey == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := requestKey(r)
			if presented == "" {
				unauthorized(w, "missing credentials")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
				unauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey pulls the presented key out of the Authorization header (Bearer
// scheme) or, failing that, the X-API-Key header.
func requestKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
