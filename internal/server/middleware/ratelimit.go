package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Applied to the public webhook and
// login routes to slow brute-force attempts against credential intake.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimitByKeyName returns an HTTP middleware that limits requests per
// claimed key identity. Limiting on the claimed name rather than the secret
// keeps secrets out of the limiter's key space.
func RateLimitByKeyName(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return r.Header.Get(APIKeyNameHeader), nil
		}),
	)
}
