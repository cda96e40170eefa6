package middleware

import (
	"net"
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// rateLimitKey 有身分時以使用者為單位，否則用來源 IP
func rateLimitKey(scope string, r *http.Request) string {
	if identity := auth.IdentityFromContext(r.Context()); auth.IsAuthenticated(identity) {
		return scope + ":user:" + identity.UserID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return scope + ":ip:" + host
}

// NewRateLimitMiddleware limiter 無法判斷時放行
func NewRateLimitMiddleware(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(scope, r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter error, request allowed")
				allowed = true
			}
			if !allowed {
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
