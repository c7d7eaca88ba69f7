package middleware

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"

	"github.com/classhub/classhub-server/internal/api/rest/respond"
)

// RateLimit throttles the unauthenticated auth endpoints by client IP, which
// slows credential stuffing and reset-token fishing.
type RateLimit struct {
	limiter *limiter.Limiter
}

// NewRateLimit creates a rate limiter allowing perSecond requests per client.
func NewRateLimit(perSecond float64) *RateLimit {
	lmt := tollbooth.NewLimiter(perSecond, nil)
	lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})

	return &RateLimit{limiter: lmt}
}

// Handle rejects requests over the limit with 429.
func (m *RateLimit) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpErr := tollbooth.LimitByRequest(m.limiter, w, r); httpErr != nil {
			respond.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
