package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/cors"
)

// CORS allows browser calls from origins. The payment return page posts
// back with cookies, so credentials stay on unless the list is a wildcard,
// which browsers refuse to combine with credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", ActorHeader, "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}).Handler
}
