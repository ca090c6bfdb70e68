package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/finrag-go/internal/logging"
)

// authMiddleware requires "Authorization: Bearer <apiKey>" on the document
// routes it wraps. An empty apiKey leaves them open. Log lines carry the
// route pattern, never the fingerprint or the presented token.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context()).With(slog.String("route", r.Pattern))

		token := bearerToken(r)
		if token == "" {
			log.Warn("server: document API call without credentials")
			w.Header().Set("WWW-Authenticate", `Bearer realm="finrag"`)
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			log.Warn("server: document API call with a wrong token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="finrag" error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken returns the token of a Bearer Authorization header, or "".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
