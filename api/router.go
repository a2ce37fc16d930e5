package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/malwarebo/rentops/middleware"
	"github.com/malwarebo/rentops/utils"
)

const APIPrefix = "/api/v1"

// Route is one endpoint. Public routes skip authentication and tenant checks;
// SkipIdempotency marks unsafe-method routes with no side effects.
type Route struct {
	Name            string
	Method          string
	Path            string
	Handler         http.HandlerFunc
	Public          bool
	SkipIdempotency bool
}

type Handlers struct {
	Health        *HealthHandler
	Organizations *OrganizationHandler
	Bookings      *BookingHandler
	Vehicles      *VehicleHandler
	Customers     *CustomerHandler
	Locations     *LocationHandler
}

func (h *Handlers) Routes() []Route {
	return []Route{
		{Name: "health", Method: http.MethodGet, Path: "/health", Handler: h.Health.HandleHealth, Public: true},

		{Name: "organizations.create", Method: http.MethodPost, Path: "/organizations", Handler: h.Organizations.HandleCreate, Public: true},
		{Name: "organizations.current", Method: http.MethodGet, Path: "/organizations/me", Handler: h.Organizations.HandleGetCurrent},
		{Name: "organizations.update", Method: http.MethodPatch, Path: "/organizations/me", Handler: h.Organizations.HandleUpdateCurrent},
		{Name: "organizations.deactivate", Method: http.MethodDelete, Path: "/organizations/me", Handler: h.Organizations.HandleDeactivateCurrent},

		{Name: "bookings.create", Method: http.MethodPost, Path: "/bookings", Handler: h.Bookings.HandleCreate},
		{Name: "bookings.list", Method: http.MethodGet, Path: "/bookings", Handler: h.Bookings.HandleList},
		{Name: "bookings.quote", Method: http.MethodPost, Path: "/bookings/quote", Handler: h.Bookings.HandleQuote, SkipIdempotency: true},
		{Name: "bookings.get", Method: http.MethodGet, Path: "/bookings/{id}", Handler: h.Bookings.HandleGet},
		{Name: "bookings.update", Method: http.MethodPatch, Path: "/bookings/{id}", Handler: h.Bookings.HandleUpdate},
		{Name: "bookings.delete", Method: http.MethodDelete, Path: "/bookings/{id}", Handler: h.Bookings.HandleDelete},
		{Name: "bookings.confirm", Method: http.MethodPost, Path: "/bookings/{id}/confirm", Handler: h.Bookings.HandleConfirm},
		{Name: "bookings.activate", Method: http.MethodPost, Path: "/bookings/{id}/activate", Handler: h.Bookings.HandleActivate},
		{Name: "bookings.complete", Method: http.MethodPost, Path: "/bookings/{id}/complete", Handler: h.Bookings.HandleComplete},
		{Name: "bookings.cancel", Method: http.MethodPost, Path: "/bookings/{id}/cancel", Handler: h.Bookings.HandleCancel},

		{Name: "vehicles.create", Method: http.MethodPost, Path: "/vehicles", Handler: h.Vehicles.HandleCreate},
		{Name: "vehicles.list", Method: http.MethodGet, Path: "/vehicles", Handler: h.Vehicles.HandleList},
		{Name: "vehicles.get", Method: http.MethodGet, Path: "/vehicles/{id}", Handler: h.Vehicles.HandleGet},
		{Name: "vehicles.update", Method: http.MethodPatch, Path: "/vehicles/{id}", Handler: h.Vehicles.HandleUpdate},
		{Name: "vehicles.availability", Method: http.MethodGet, Path: "/vehicles/{id}/availability", Handler: h.Vehicles.HandleAvailability},

		{Name: "customers.create", Method: http.MethodPost, Path: "/customers", Handler: h.Customers.HandleCreate},
		{Name: "customers.list", Method: http.MethodGet, Path: "/customers", Handler: h.Customers.HandleList},
		{Name: "customers.get", Method: http.MethodGet, Path: "/customers/{id}", Handler: h.Customers.HandleGet},
		{Name: "customers.update", Method: http.MethodPatch, Path: "/customers/{id}", Handler: h.Customers.HandleUpdate},

		{Name: "locations.create", Method: http.MethodPost, Path: "/locations", Handler: h.Locations.HandleCreate},
		{Name: "locations.list", Method: http.MethodGet, Path: "/locations", Handler: h.Locations.HandleList},
		{Name: "locations.get", Method: http.MethodGet, Path: "/locations/{id}", Handler: h.Locations.HandleGet},
		{Name: "locations.update", Method: http.MethodPatch, Path: "/locations/{id}", Handler: h.Locations.HandleUpdate},
	}
}

func PublicRoutes(routes []Route) middleware.RouteSet {
	set := middleware.NewRouteSet()
	for _, r := range routes {
		if r.Public {
			set[r.Name] = true
		}
	}
	return set
}

func IdempotencyExemptRoutes(routes []Route) middleware.RouteSet {
	set := middleware.NewRouteSet()
	for _, r := range routes {
		if r.SkipIdempotency {
			set[r.Name] = true
		}
	}
	return set
}

// NewRouter mounts routes under APIPrefix. The outer pipeline wraps the whole
// router; the inner one runs after route matching so stages can see route names.
func NewRouter(routes []Route, outer, inner *middleware.Pipeline) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, utils.NewNotFoundError(utils.ReasonNotFound, "Route not found"))
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, utils.NewAPIError(http.StatusMethodNotAllowed, utils.ReasonInvalidRequest, "Method not allowed"))
	})

	router := mux.NewRouter()
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = methodNotAllowed

	apiRouter := router.PathPrefix(APIPrefix).Subrouter()
	apiRouter.NotFoundHandler = notFound
	apiRouter.MethodNotAllowedHandler = methodNotAllowed
	apiRouter.Use(inner.Middleware)
	for _, route := range routes {
		apiRouter.HandleFunc(route.Path, requirePathID(route.Handler)).Methods(route.Method).Name(route.Name)
	}

	return outer.Then(router)
}

type StackConfig struct {
	Auth            *middleware.AuthMiddleware
	Tenant          *middleware.TenantMiddleware
	Idempotency     *middleware.Idempotency
	RateLimit       bool
	AllowedOrigins  []string
	MaxRequestBytes int64
}

// Pipelines orders request handling. Outer: logging, recovery, CORS, headers, body limit.
// Inner, per matched route: auth, tenant, rate limit, idempotency.
func Pipelines(cfg StackConfig) (outer, inner *middleware.Pipeline) {
	outer = middleware.CreatePipeline(
		middleware.LoggingMiddleware,
		middleware.RecoveryMiddleware,
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.HeadersMiddleware,
		middleware.RequestSizeLimitMiddleware(cfg.MaxRequestBytes),
	)

	inner = middleware.CreatePipeline(
		cfg.Auth.JWTMiddleware,
		cfg.Tenant.RequireActiveOrganization,
	)
	if cfg.RateLimit {
		inner = inner.Append(cfg.Auth.RateLimitMiddleware)
	}
	inner = inner.Append(cfg.Idempotency.Middleware)

	return outer, inner
}
