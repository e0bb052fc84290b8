package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/imranpollob/nft-rental-marketplace/internal/auth"
	"github.com/imranpollob/nft-rental-marketplace/internal/clock"
	"github.com/imranpollob/nft-rental-marketplace/internal/config"
	"github.com/imranpollob/nft-rental-marketplace/internal/escrow"
	"github.com/imranpollob/nft-rental-marketplace/internal/identity"
	"github.com/imranpollob/nft-rental-marketplace/internal/listing"
	"github.com/imranpollob/nft-rental-marketplace/internal/middleware"
	"github.com/imranpollob/nft-rental-marketplace/internal/notification"
	"github.com/imranpollob/nft-rental-marketplace/internal/registry"
	"github.com/imranpollob/nft-rental-marketplace/internal/rental"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Registry is the asset registry adapter. When nil an in-process
	// registry is created, which is only acceptable in development.
	Registry registry.Registry
	Clock    clock.Clock
}

// Services exposes the assembled core services so the entrypoint can hang
// background jobs off them.
type Services struct {
	Rentals  *rental.Service
	Listings *listing.Service
	Ledger   escrow.Ledger
}

// Setup configures middlewares and all application routes, returning the
// assembled services.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	clk := d.Clock
	if clk == nil {
		clk = clock.System{}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Backends: Postgres when wired, in-memory otherwise.
	gateway := escrow.NewLogGateway(d.Logger)
	var ledger escrow.Ledger
	if d.DB != nil {
		ledger = escrow.NewPostgresLedger(d.DB, gateway)
	} else {
		ledger = escrow.NewInMemory(gateway)
	}

	var identityRepo identity.Repository
	var listingRepo listing.Repository
	var rentalRepo rental.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		listingRepo = listing.NewPostgresRepository(d.DB)
		rentalRepo = rental.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		listingRepo = listing.NewMemoryRepository()
		rentalRepo = rental.NewMemoryRepository()
	}

	reg := d.Registry
	var memReg *registry.Memory
	if reg == nil {
		memReg = registry.NewMemory(clk, d.Cfg.RegistryController)
		reg = memReg
	}

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg)
	listingSvc := listing.NewService(listingRepo, reg)
	notifier := notification.NewLoggerNotifier(d.Logger)
	rentalSvc := rental.NewService(rentalRepo, listingSvc, ledger, reg, clk, notifier,
		d.Logger, d.Cfg.RegistryController, d.Cfg.FeeBps, d.Cfg.FeeRecipient)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	listingHandler := listing.NewHandler(listingSvc)
	rentalHandler := rental.NewHandler(rentalSvc)
	escrowHandler := escrow.NewHandler(ledger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	api.Get("/listings/:assetId", listingHandler.Get)

	// Protected routes
	jwtmw := middleware.JWTAuth(authSvc, identityRepo)
	protected := api.Group("", jwtmw)
	RegisterListingRoutes(protected, listingHandler)
	RegisterRentalRoutes(protected, rentalHandler)
	RegisterEscrowRoutes(protected, escrowHandler)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(admin, rentalHandler)
	if memReg != nil && d.Cfg.IsDev() {
		RegisterDevRegistryRoutes(admin, memReg)
	}

	return &Services{Rentals: rentalSvc, Listings: listingSvc, Ledger: ledger}, nil
}
