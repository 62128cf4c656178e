package middleware

import (
	"slices"

	"github.com/go-chi/cors"
)

// CORSHandler allows the extension and overlay origins to call the relay.
// Page agents identify their tab with the X-Tab-ID header.
func CORSHandler(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Tab-ID"},
		ExposedHeaders: []string{"Content-Length", "Retry-After"},
		// credentials never go with a wildcard origin
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}
}
