// Package bearer guards machine-to-machine routes with a shared secret sent
// as "Authorization: Bearer <secret>".
package bearer

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"eventTicketing/internal/lib/api/response"

	"github.com/go-chi/render"
)

const prefix = "Bearer "

func New(log *slog.Logger, secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(
			slog.String("component", "middleware/bearer"),
		)

		fn := func(w http.ResponseWriter, r *http.Request) {
			if !Valid(r.Header.Get("Authorization"), secret) {
				log.Warn("unauthorized request", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

// Valid reports whether header carries secret. An empty secret never
// matches.
func Valid(header, secret string) bool {
	if secret == "" || !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimPrefix(header, prefix)

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
