package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware requires "Authorization: Bearer <token>" on every path except
// /health. An empty token disables the check. Websocket clients that cannot
// set headers may pass ?token= instead.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if subtle.ConstantTimeCompare([]byte(bearerToken(r)), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gangaguard"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
