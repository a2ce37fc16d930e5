package middleware

import (
	"context"
	"net/http"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/utils"
)

type OrganizationChecker interface {
	GetActive(ctx context.Context, id string) (*models.Organization, error)
}

type TenantMiddleware struct {
	organizations OrganizationChecker
	public        RouteSet
}

func CreateTenantMiddleware(organizations OrganizationChecker, public RouteSet) *TenantMiddleware {
	return &TenantMiddleware{
		organizations: organizations,
		public:        public,
	}
}

// RequireActiveOrganization rejects tokens whose organization is gone or deactivated.
func (tm *TenantMiddleware) RequireActiveOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tm.public.Matches(r) {
			next.ServeHTTP(w, r)
			return
		}

		orgID := utils.GetOrganizationID(r.Context())
		if orgID == "" {
			utils.WriteError(w, utils.ErrUnauthorized)
			return
		}

		if _, err := tm.organizations.GetActive(r.Context(), orgID); err != nil {
			apiErr := utils.ToAPIError(err)
			if apiErr.Code >= http.StatusInternalServerError {
				utils.LogError(r.Context(), err, "organization lookup failed", nil)
			}
			utils.WriteError(w, apiErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}
