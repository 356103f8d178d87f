package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

const defaultFrontendOrigin = "http://localhost:5173"

// CORS allows the notebook frontend to call the AI routes, including the
// streaming endpoint which the browser opens with fetch.
// A "*" entry turns credentials off since browsers refuse them with a wildcard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultFrontendOrigin}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Cache-Control", requestIDHeader},
		// Retry-After is read by the client after a burst rejection.
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           600,
	})
}
