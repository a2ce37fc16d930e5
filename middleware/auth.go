package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/malwarebo/rentops/security"
	"github.com/malwarebo/rentops/utils"
)

type AuthMiddleware struct {
	jwtManager  *security.JWTManager
	rateLimiter *security.TieredRateLimiter
	public      RouteSet
}

func CreateAuthMiddleware(jwtManager *security.JWTManager, rateLimiter *security.TieredRateLimiter, public RouteSet) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:  jwtManager,
		rateLimiter: rateLimiter,
		public:      public,
	}
}

// JWTMiddleware derives the caller's organization from a bearer token.
func (am *AuthMiddleware) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if am.public.Matches(r) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.WriteError(w, utils.NewAPIError(http.StatusUnauthorized, utils.ReasonUnauthorized, "Authorization header required"))
			return
		}

		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			utils.WriteError(w, utils.NewAPIError(http.StatusUnauthorized, utils.ReasonUnauthorized, "Invalid authorization format"))
			return
		}

		claims, err := am.jwtManager.ValidateToken(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			utils.Warn(r.Context(), "rejected bearer token", map[string]interface{}{"error": err.Error()})
			utils.WriteError(w, utils.NewAPIError(http.StatusUnauthorized, utils.ReasonUnauthorized, "Invalid or expired token"))
			return
		}

		ctx := utils.WithOrganizationID(r.Context(), claims.OrganizationID)
		ctx = utils.WithUserID(ctx, claims.Subject)
		ctx = utils.WithRoles(ctx, claims.Roles)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware limits per organization, or per client address on public routes.
func (am *AuthMiddleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := utils.GetOrganizationID(r.Context())
		if key == "" {
			key = "ip:" + getClientIP(r)
		}
		tier := security.TierForRoles(utils.GetRoles(r.Context()))

		allowed := am.rateLimiter.Allow(key, tier)
		if remaining, ok := am.rateLimiter.Remaining(key); ok {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		if !allowed {
			utils.WriteError(w, utils.ErrTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
