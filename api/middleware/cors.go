package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",      // local dev
	"https://vendia.app",         // storefront
	"https://admin.vendia.app",   // admin console
	"https://staging.vendia.app", // staging storefront
}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(extraOrigins []string) func(http.Handler) http.Handler {
	origins := defaultCORSOrigins
	if len(extraOrigins) > 0 {
		origins = append(append([]string{}, defaultCORSOrigins...), extraOrigins...)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Poll-Interval"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
