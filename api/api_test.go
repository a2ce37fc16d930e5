package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/malwarebo/rentops/cache"
	"github.com/malwarebo/rentops/middleware"
	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/security"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/testutil"
	"github.com/malwarebo/rentops/utils"
	"github.com/redis/go-redis/v9"
)

type testServer struct {
	handler http.Handler
	store   *testutil.MemoryStore
	fleet   *testutil.Fleet
	jwt     *security.JWTManager
	mr      *miniredis.Miniredis
	token   string
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, extraChecks map[string]Pinger) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	redisCache := cache.NewRedisCacheFromClient(client, 0)

	store := testutil.NewMemoryStore()
	fleet := testutil.SeedFleet(store, "acme", 10000)

	jwtManager := security.CreateJWTManager("test-secret", "rentops", "rentops-api", time.Hour)
	limiter := security.CreateTieredRateLimiter(map[string]security.RateLimitConfig{
		security.TierDefault: {RequestsPerSecond: 1000, Burst: 1000},
	})
	t.Cleanup(limiter.Close)

	bookingService := services.CreateBookingService(store.Bookings(), store.Vehicles(), store.Customers(), store.Locations(), store.Organizations(),
		services.WithClock(testutil.FixedClock(time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC))))
	organizationService := services.CreateOrganizationService(store.Organizations(), jwtManager)

	checks := map[string]Pinger{"redis": redisCache}
	for name, p := range extraChecks {
		checks[name] = p
	}

	handlers := &Handlers{
		Health:        CreateHealthHandler(checks),
		Organizations: CreateOrganizationHandler(organizationService),
		Bookings:      CreateBookingHandler(bookingService),
		Vehicles:      CreateVehicleHandler(services.CreateVehicleService(store.Vehicles()), bookingService),
		Customers:     CreateCustomerHandler(services.CreateCustomerService(store.Customers())),
		Locations:     CreateLocationHandler(services.CreateLocationService(store.Locations())),
	}
	routes := handlers.Routes()
	public := PublicRoutes(routes)

	outer, inner := Pipelines(StackConfig{
		Auth:            middleware.CreateAuthMiddleware(jwtManager, limiter, public),
		Tenant:          middleware.CreateTenantMiddleware(organizationService, public),
		Idempotency:     middleware.CreateIdempotency(stores.CreateIdempotencyStore(redisCache), IdempotencyExemptRoutes(routes)),
		RateLimit:       true,
		AllowedOrigins:  []string{"*"},
		MaxRequestBytes: 1 << 16,
	})

	token, err := jwtManager.GenerateToken(fleet.Organization.ID, "staff-1", []string{"staff"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	return &testServer{
		handler: NewRouter(routes, outer, inner),
		store:   store,
		fleet:   fleet,
		jwt:     jwtManager,
		mr:      mr,
		token:   token,
	}
}

type call struct {
	method string
	path   string
	body   interface{}
	key    string
	token  string
	noAuth bool
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		if raw, ok := c.body.(string); ok {
			body.WriteString(raw)
		} else if err := json.NewEncoder(&body).Encode(c.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(c.method, APIPrefix+c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, c.key)
	}
	if !c.noAuth {
		token := c.token
		if token == "" {
			token = s.token
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) bookingBody(pickup, dropoff time.Time) map[string]interface{} {
	return map[string]interface{}{
		"customer_id":         s.fleet.Customer.ID,
		"vehicle_id":          s.fleet.Vehicle.ID,
		"pickup_location_id":  s.fleet.Location.ID,
		"dropoff_location_id": s.fleet.Location.ID,
		"pickup_datetime":     pickup,
		"dropoff_datetime":    dropoff,
	}
}

func TestAPI_CreateBookingAndReplay(t *testing.T) {
	s := newTestServer(t, nil)
	key := uuid.NewString()
	body := s.bookingBody(testutil.Day(1), testutil.Day(5))

	first := s.do(t, call{method: http.MethodPost, path: "/bookings", body: body, key: key})
	if first.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", first.Code, first.Body.String())
	}
	booking := decode[models.Booking](t, first)
	if booking.Status != models.BookingStatusPending || booking.TotalCents != 40000 || booking.BookingNumber != "BP-2025-000001" {
		t.Errorf("booking = %+v", booking)
	}

	second := s.do(t, call{method: http.MethodPost, path: "/bookings", body: body, key: key})
	if second.Code != http.StatusCreated || second.Header().Get(middleware.IdempotentReplayedHeader) != "true" {
		t.Fatalf("replay status = %d replayed=%q", second.Code, second.Header().Get(middleware.IdempotentReplayedHeader))
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("replayed body differs from the original")
	}
	if s.store.BookingCount() != 1 {
		t.Errorf("BookingCount() = %d, want 1", s.store.BookingCount())
	}
}

func TestAPI_KeyCannotBeReusedOnAnotherRoute(t *testing.T) {
	s := newTestServer(t, nil)
	key := uuid.NewString()

	rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(1), testutil.Day(3)), key: key})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	booking := decode[models.Booking](t, rec)

	confirm := s.do(t, call{method: http.MethodPost, path: "/bookings/" + booking.ID + "/confirm", key: key})
	if confirm.Code != http.StatusConflict || confirm.Header().Get(middleware.IdempotentReplayedHeader) != "" {
		t.Fatalf("confirm with reused key = %d replayed=%q", confirm.Code, confirm.Header().Get(middleware.IdempotentReplayedHeader))
	}
	if got := decode[utils.ErrorResponse](t, confirm); got.Code != utils.ReasonIdempotencyKeyReused {
		t.Errorf("code = %s, want %s", got.Code, utils.ReasonIdempotencyKeyReused)
	}

	got := decode[models.Booking](t, s.do(t, call{method: http.MethodGet, path: "/bookings/" + booking.ID}))
	if got.Status != models.BookingStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestAPI_MutationsRequireIdempotencyKey(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(1), testutil.Day(2))})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decode[utils.ErrorResponse](t, rec); got.Code != utils.ReasonIdempotencyKeyRequired {
		t.Errorf("code = %s", got.Code)
	}

	quote := s.do(t, call{method: http.MethodPost, path: "/bookings/quote", body: map[string]interface{}{
		"vehicle_id":       s.fleet.Vehicle.ID,
		"pickup_datetime":  testutil.Day(1),
		"dropoff_datetime": testutil.Day(3),
	}})
	if quote.Code != http.StatusOK {
		t.Fatalf("quote status = %d body %s", quote.Code, quote.Body.String())
	}
	if q := decode[models.Quote](t, quote); q.NumDays != 2 || q.TotalCents != 20000 {
		t.Errorf("quote = %+v", q)
	}
}

func TestAPI_OverlapIsRejectedAndKeyReleased(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(1), testutil.Day(5)), key: uuid.NewString()}); rec.Code != http.StatusCreated {
		t.Fatalf("first booking status = %d", rec.Code)
	}

	key := uuid.NewString()
	overlapping := s.bookingBody(testutil.Day(3), testutil.Day(7))
	rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: overlapping, key: key})
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[utils.ErrorResponse](t, rec); got.Code != utils.ReasonVehicleUnavailable || !strings.Contains(got.Details, "BP-2025-000001") {
		t.Errorf("error = %+v", got)
	}

	// Same key again: the failure was not cached, so the request runs again.
	retry := s.do(t, call{method: http.MethodPost, path: "/bookings", body: overlapping, key: key})
	if retry.Header().Get(middleware.IdempotentReplayedHeader) != "" || retry.Code != http.StatusConflict {
		t.Errorf("retry status = %d replayed=%q", retry.Code, retry.Header().Get(middleware.IdempotentReplayedHeader))
	}

	// Back-to-back rental is fine.
	rec = s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(5), testutil.Day(6)), key: uuid.NewString()})
	if rec.Code != http.StatusCreated {
		t.Errorf("adjacent booking status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ConcurrentDuplicateCreatesOneBooking(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.CreateBookingDelay = 50 * time.Millisecond
	key := uuid.NewString()
	body := s.bookingBody(testutil.Day(10), testutil.Day(12))

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(t, call{method: http.MethodPost, path: "/bookings", body: body, key: key}).Code
		}(i)
	}
	wg.Wait()

	if s.store.BookingCount() != 1 {
		t.Fatalf("BookingCount() = %d, want 1 (codes %v)", s.store.BookingCount(), codes)
	}
	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else if code != http.StatusConflict {
			t.Errorf("unexpected status %d", code)
		}
	}
	if created == 0 {
		t.Errorf("codes = %v, want at least one 201", codes)
	}
}

func TestAPI_StatusLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(1), testutil.Day(3)), key: uuid.NewString()})
	booking := decode[models.Booking](t, rec)

	steps := []struct {
		action     string
		wantStatus int
		want       models.BookingStatus
	}{
		{"activate", http.StatusBadRequest, ""},
		{"confirm", http.StatusOK, models.BookingStatusConfirmed},
		{"activate", http.StatusOK, models.BookingStatusActive},
		{"cancel", http.StatusBadRequest, ""},
		{"complete", http.StatusOK, models.BookingStatusCompleted},
		{"confirm", http.StatusBadRequest, ""},
	}

	for _, step := range steps {
		rec := s.do(t, call{method: http.MethodPost, path: "/bookings/" + booking.ID + "/" + step.action, key: uuid.NewString()})
		if rec.Code != step.wantStatus {
			t.Fatalf("%s: status = %d body %s", step.action, rec.Code, rec.Body.String())
		}
		if step.want != "" {
			if got := decode[models.Booking](t, rec); got.Status != step.want {
				t.Errorf("%s: status = %s, want %s", step.action, got.Status, step.want)
			}
		}
	}

	got := decode[models.Booking](t, s.do(t, call{method: http.MethodGet, path: "/bookings/" + booking.ID}))
	if got.Status != models.BookingStatusCompleted {
		t.Errorf("stored status = %s", got.Status)
	}
}

func TestAPI_TenantIsolation(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: s.bookingBody(testutil.Day(1), testutil.Day(3)), key: uuid.NewString()})
	booking := decode[models.Booking](t, rec)

	other := testutil.SeedFleet(s.store, "globex", 5000)
	otherToken, err := s.jwt.GenerateToken(other.Organization.ID, "staff-2", nil)
	if err != nil {
		t.Fatal(err)
	}

	if rec := s.do(t, call{method: http.MethodGet, path: "/bookings/" + booking.ID, token: otherToken}); rec.Code != http.StatusNotFound {
		t.Errorf("cross-tenant get = %d, want 404", rec.Code)
	}
	if rec := s.do(t, call{method: http.MethodPost, path: "/bookings/" + booking.ID + "/cancel", token: otherToken, key: uuid.NewString()}); rec.Code != http.StatusNotFound {
		t.Errorf("cross-tenant cancel = %d, want 404", rec.Code)
	}

	list := decode[models.BookingListResponse](t, s.do(t, call{method: http.MethodGet, path: "/bookings", token: otherToken}))
	if list.Total != 0 {
		t.Errorf("other tenant sees %d bookings", list.Total)
	}
}

func TestAPI_Authentication(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, call{method: http.MethodGet, path: "/bookings", noAuth: true}); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", rec.Code)
	}

	ghost, _ := s.jwt.GenerateToken(uuid.NewString(), "nobody", nil)
	if rec := s.do(t, call{method: http.MethodGet, path: "/bookings", token: ghost}); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown organization = %d, want 401", rec.Code)
	}
}

func TestAPI_OrganizationSignupAndSettings(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, call{method: http.MethodPost, path: "/organizations", noAuth: true, key: uuid.NewString(), body: map[string]interface{}{
		"name": "Initech Rentals",
		"slug": "initech",
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body %s", rec.Code, rec.Body.String())
	}
	created := decode[models.OrganizationResponse](t, rec)
	if created.AccessToken == "" {
		t.Fatal("signup must return an access token")
	}

	rec = s.do(t, call{method: http.MethodPatch, path: "/organizations/me", token: created.AccessToken, key: uuid.NewString(), body: map[string]interface{}{
		"settings": map[string]interface{}{"tax_rate_basis_points": 825},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[models.Organization](t, rec); got.Settings.Data().TaxRateBasisPoints != 825 {
		t.Errorf("settings = %+v", got.Settings.Data())
	}

	// Staff tokens may not change organization settings.
	rec = s.do(t, call{method: http.MethodPatch, path: "/organizations/me", key: uuid.NewString(), body: map[string]interface{}{"name": "x"}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff update = %d, want 403", rec.Code)
	}

	if rec := s.do(t, call{method: http.MethodDelete, path: "/organizations/me", token: created.AccessToken, key: uuid.NewString()}); rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate = %d", rec.Code)
	}
	if rec := s.do(t, call{method: http.MethodGet, path: "/organizations/me", token: created.AccessToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("deactivated organization = %d, want 401", rec.Code)
	}
}

func TestAPI_ValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     interface{}
		wantCode string
	}{
		{"malformed json", `{"customer_id":`, utils.ReasonInvalidRequest},
		{"unknown field", `{"surprise": true}`, utils.ReasonInvalidRequest},
		{"missing fields", map[string]interface{}{"notes": "hi"}, utils.ReasonValidationFailed},
		{"inverted window", s.bookingBody(testutil.Day(5), testutil.Day(1)), utils.ReasonInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: tt.body, key: uuid.NewString()})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
			}
			if got := decode[utils.ErrorResponse](t, rec); got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
		})
	}
}

func TestAPI_MalformedIDs(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"get booking", http.MethodGet, "/bookings/abc", nil, http.StatusNotFound},
		{"patch booking", http.MethodPatch, "/bookings/abc", map[string]interface{}{"notes": "x"}, http.StatusNotFound},
		{"confirm booking", http.MethodPost, "/bookings/abc/confirm", nil, http.StatusNotFound},
		{"vehicle availability", http.MethodGet, "/vehicles/1/availability?pickup=2025-01-02T00:00:00Z&dropoff=2025-01-04T00:00:00Z", nil, http.StatusNotFound},
		{"vehicle filter", http.MethodGet, "/bookings?vehicle_id=abc", nil, http.StatusBadRequest},
		{"customer filter", http.MethodGet, "/bookings?customer_id=abc", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := call{method: tt.method, path: tt.path, body: tt.body}
			if tt.method != http.MethodGet {
				c.key = uuid.NewString()
			}
			rec := s.do(t, c)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	filtered := decode[models.BookingListResponse](t, s.do(t, call{method: http.MethodGet, path: "/bookings?vehicle_id=" + s.fleet.Vehicle.ID}))
	if filtered.Total != 0 {
		t.Errorf("filtered total = %d, want 0", filtered.Total)
	}
}

func TestAPI_FleetAndAvailability(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, call{method: http.MethodPost, path: "/vehicles", key: uuid.NewString(), body: map[string]interface{}{
		"make": "Ford", "model": "Focus", "license_plate": "ACME-002", "daily_rate_cents": 7500,
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create vehicle = %d body %s", rec.Code, rec.Body.String())
	}
	vehicle := decode[models.Vehicle](t, rec)

	list := decode[ListResponse[*models.Vehicle]](t, s.do(t, call{method: http.MethodGet, path: "/vehicles?limit=1"}))
	if list.Total != 2 || len(list.Items) != 1 || list.Limit != 1 {
		t.Errorf("vehicle list = total %d items %d limit %d", list.Total, len(list.Items), list.Limit)
	}

	path := "/vehicles/" + vehicle.ID + "/availability?pickup=2025-01-02T00:00:00Z&dropoff=2025-01-04T00:00:00Z"
	if got := decode[models.Availability](t, s.do(t, call{method: http.MethodGet, path: path})); !got.Available {
		t.Errorf("fresh vehicle should be available: %+v", got)
	}

	body := s.bookingBody(testutil.Day(1), testutil.Day(3))
	body["vehicle_id"] = vehicle.ID
	if rec := s.do(t, call{method: http.MethodPost, path: "/bookings", body: body, key: uuid.NewString()}); rec.Code != http.StatusCreated {
		t.Fatalf("booking = %d body %s", rec.Code, rec.Body.String())
	}

	got := decode[models.Availability](t, s.do(t, call{method: http.MethodGet, path: path}))
	if got.Available || len(got.Conflicts) != 1 {
		t.Errorf("availability after booking = %+v", got)
	}

	if rec := s.do(t, call{method: http.MethodGet, path: "/vehicles/" + vehicle.ID + "/availability?pickup=tomorrow&dropoff=2025-01-04T00:00:00Z"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad pickup = %d, want 400", rec.Code)
	}
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodGet, path: "/health", noAuth: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d body %s", rec.Code, rec.Body.String())
	}

	degraded := newTestServer(t, map[string]Pinger{"database": failingPinger{}})
	rec = degraded.do(t, call{method: http.MethodGet, path: "/health", noAuth: true})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded health = %d, want 503", rec.Code)
	}
	if got := decode[HealthResponse](t, rec); got.Checks["database"] == "ok" || got.Checks["redis"] != "ok" {
		t.Errorf("checks = %v", got.Checks)
	}
}

func TestAPI_UnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodGet, path: "/nope"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec.Header().Get(middleware.CorrelationIDHeader) == "" {
		t.Error("outer pipeline should still tag the response")
	}
}
