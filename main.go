package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/malwarebo/rentops/api"
	"github.com/malwarebo/rentops/cache"
	"github.com/malwarebo/rentops/config"
	"github.com/malwarebo/rentops/db"
	"github.com/malwarebo/rentops/middleware"
	"github.com/malwarebo/rentops/security"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/utils"
	"gorm.io/gorm/logger"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func printBanner() {
	fmt.Printf("%s%s", colorCyan, colorBold)
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                                                              ║")
	fmt.Println("║  🚗 RentOps Rental Operations Backend                        ║")
	fmt.Println("║                                                              ║")
	fmt.Println("║  Bookings, fleet and pricing for rental companies            ║")
	fmt.Println("║                                                              ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("%s", colorReset)
}

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s%s%s\n", colorBlue, step, colorReset, colorBold, message, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func printInfo(message string) {
	fmt.Printf("%sℹ%s %s\n", colorCyan, colorReset, message)
}

func fail(message string, err error) {
	printError(fmt.Sprintf("%s: %v", message, err))
	os.Exit(1)
}

func main() {
	printBanner()
	fmt.Println()

	printStep("1/7", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		fail("Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("Configuration validation failed", err)
	}
	utils.SetDefaultLogger(utils.NewLogger("rentops", os.Stdout, cfg.Logging.Level))
	printSuccess(fmt.Sprintf("Configuration loaded (%s)", cfg.Environment))

	printStep("2/7", "Connecting to database...")
	gormLevel := logger.Warn
	if cfg.IsDevelopment() {
		gormLevel = logger.Info
	}
	database, err := db.CreateDB(db.Options{
		PrimaryDSN:   cfg.GetDatabaseURL(),
		ReplicaDSNs:  cfg.Database.ReplicaDSNs,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
		MaxIdleTime:  cfg.Database.MaxIdleTime,
		LogLevel:     gormLevel,
	})
	if err != nil {
		fail("Failed to connect to database", err)
	}
	defer database.Close()
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d (%d replicas)", cfg.Database.Host, cfg.Database.Port, len(cfg.Database.ReplicaDSNs)))

	if cfg.Database.AutoMigrate {
		printStep("2/7", "Applying schema migrations...")
		if err := db.CreateSchemaMigrator(database.GetDB()).Up(context.Background()); err != nil {
			fail("Failed to migrate database", err)
		}
		printSuccess("Schema is up to date")
	}

	printStep("3/7", "Connecting to Redis...")
	redisCache, err := cache.CreateRedisCache(cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdle,
		TTL:          cfg.Redis.TTL,
	})
	if err != nil {
		// Without Redis no mutating request can be made idempotent.
		fail("Failed to connect to Redis", err)
	}
	defer redisCache.Close()
	printSuccess(fmt.Sprintf("Connected to Redis at %s", cfg.GetRedisAddr()))

	printStep("4/7", "Initializing security components...")
	jwtManager := security.CreateJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTAudience, cfg.Security.JWTExpiration)

	rps, burst := cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst
	rateLimiter := security.CreateTieredRateLimiter(map[string]security.RateLimitConfig{
		security.TierDefault:  {RequestsPerSecond: rps, Burst: burst},
		security.TierStandard: {RequestsPerSecond: rps * 2, Burst: burst * 2},
		security.TierPremium:  {RequestsPerSecond: rps * 5, Burst: burst * 5},
	})
	defer rateLimiter.Close()
	printSuccess("Security components initialized")

	printStep("5/7", "Initializing stores and services...")
	gdb := database.GetDB()
	bookingStore := stores.CreateBookingStore(gdb)
	vehicleStore := stores.CreateVehicleStore(gdb)
	customerStore := stores.CreateCustomerStore(gdb)
	locationStore := stores.CreateLocationStore(gdb)
	organizationStore := stores.CreateOrganizationStore(gdb)
	idempotencyStore := stores.CreateIdempotencyStore(redisCache)

	bookingService := services.CreateBookingService(bookingStore, vehicleStore, customerStore, locationStore, organizationStore,
		services.WithNumberAttempts(cfg.Booking.NumberAttempts))
	organizationService := services.CreateOrganizationService(organizationStore, jwtManager)
	vehicleService := services.CreateVehicleService(vehicleStore)
	customerService := services.CreateCustomerService(customerStore)
	locationService := services.CreateLocationService(locationStore)
	printSuccess("Services initialized")

	printStep("6/7", "Setting up HTTP server...")
	handlers := &api.Handlers{
		Health:        api.CreateHealthHandler(map[string]api.Pinger{"database": database, "redis": redisCache}),
		Organizations: api.CreateOrganizationHandler(organizationService),
		Bookings:      api.CreateBookingHandler(bookingService),
		Vehicles:      api.CreateVehicleHandler(vehicleService, bookingService),
		Customers:     api.CreateCustomerHandler(customerService),
		Locations:     api.CreateLocationHandler(locationService),
	}
	routes := handlers.Routes()
	publicRoutes := api.PublicRoutes(routes)

	outer, inner := api.Pipelines(api.StackConfig{
		Auth:            middleware.CreateAuthMiddleware(jwtManager, rateLimiter, publicRoutes),
		Tenant:          middleware.CreateTenantMiddleware(organizationService, publicRoutes),
		Idempotency:     middleware.CreateIdempotency(idempotencyStore, api.IdempotencyExemptRoutes(routes)),
		RateLimit:       cfg.Security.RateLimitEnabled,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        api.NewRouter(routes, outer, inner),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	printSuccess("HTTP server configured")

	base := fmt.Sprintf("http://localhost:%s%s", cfg.Server.Port, api.APIPrefix)
	fmt.Println()
	fmt.Printf("%s%s🎉 RentOps is ready!%s\n", colorGreen, colorBold, colorReset)
	fmt.Println()
	fmt.Printf("%s%sAPI Endpoints:%s\n", colorPurple, colorBold, colorReset)
	fmt.Printf("  %s•%s Health Check:  %s%s/health%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Printf("  %s•%s Signup:        %s%s/organizations%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Printf("  %s•%s Bookings:      %s%s/bookings%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Printf("  %s•%s Vehicles:      %s%s/vehicles%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Printf("  %s•%s Customers:     %s%s/customers%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Printf("  %s•%s Locations:     %s%s/locations%s\n", colorCyan, colorReset, colorYellow, base, colorReset)
	fmt.Println()
	fmt.Printf("%s%sEnvironment:%s %s%s%s\n", colorPurple, colorBold, colorReset, colorYellow, cfg.Environment, colorReset)
	fmt.Printf("%s%sRate limiting:%s %s%v%s\n", colorPurple, colorBold, colorReset, colorYellow, cfg.Security.RateLimitEnabled, colorReset)
	fmt.Println()
	fmt.Printf("%s%sPress Ctrl+C to stop the server%s\n", colorYellow, colorBold, colorReset)
	fmt.Println()

	printStep("7/7", "Starting server...")
	serverErr := make(chan error, 1)
	go func() {
		printInfo(fmt.Sprintf("Listening on port %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		fail("Server failed", err)
	}

	fmt.Println()
	printWarning("Shutting down RentOps server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		printError(fmt.Sprintf("Server forced to shutdown: %v", err))
		return
	}

	printSuccess("Server stopped gracefully")
}
