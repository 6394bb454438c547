package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// requireBearer rejects requests whose Authorization header is not exactly
// "Bearer <secret>". An empty secret rejects every request.
func requireBearer(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validBearer(r.Header.Get("Authorization"), secret) {
				logger.WarnContext(r.Context(), "unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validBearer(header, secret string) bool {
	if secret == "" || !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	token := header[len(bearerPrefix):]
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
