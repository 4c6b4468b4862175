package app

import (
	"agritrace-backend/internal/carbon"
	"agritrace-backend/internal/config"
	"agritrace-backend/internal/database"
	"agritrace-backend/internal/escrow"
	"agritrace-backend/internal/health"
	"agritrace-backend/internal/ledger"
	"agritrace-backend/internal/middleware"
	"agritrace-backend/internal/payment"
	"agritrace-backend/internal/pkg/keylock"
	"agritrace-backend/internal/reputation"
	"agritrace-backend/internal/verification"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App bundles the Fiber app with the resources that need an explicit
// shutdown.
type App struct {
	Fiber       *fiber.App
	DB          *gorm.DB
	Rdb         *redis.Client
	RateLimiter *middleware.RateLimiter
}

// New builds the Fiber app with all global middleware and routes.
func New(cfg *config.Config) (*App, error) {
	fapp := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	if rdb != nil {
		fapp.Use(middleware.HealthMarker(rdb))
	}
	fapp.Use(middleware.Tracing())
	fapp.Use(middleware.RouteLogger())

	healthHandlers := &health.Handlers{Rdb: rdb, DB: db, FacilitatorURL: cfg.FacilitatorURL}
	fapp.Get("/health/json", healthHandlers.JSON)
	adminOnly := middleware.RequireAdminKey(cfg.HealthAdminKeyHash)
	fapp.Get("/health/reset", adminOnly, healthHandlers.Reset)
	fapp.Get("/health/errors", adminOnly, healthHandlers.Errors)

	if db != nil && rdb != nil {
		locks := keylock.New()

		repService := &reputation.Service{DB: db, Locks: locks}
		carbonService := &carbon.Service{DB: db, Locks: locks, Reputation: repService}
		ledgerService := &ledger.Service{DB: db, Locks: locks, Reputation: repService}
		verifyService := &verification.Service{DB: db, Locks: locks, Reputation: repService, Carbon: carbonService}
		escrowService := &escrow.Service{DB: db, Locks: locks, Reputation: repService}

		gateway := &payment.Gateway{
			Requirements: payment.Requirements{
				Scheme:            "exact",
				Network:           cfg.PaymentNetwork,
				Asset:             cfg.PaymentAssetID,
				Amount:            cfg.PaymentAmount,
				PayTo:             cfg.PayToAddress,
				MaxTimeoutSeconds: int(cfg.FacilitatorTimeout.Seconds()),
				Resource:          "/verify",
				Description:       "Automated produce batch authenticity verification",
			},
			Facilitator: payment.NewHTTPFacilitator(cfg.FacilitatorURL, cfg.FacilitatorTimeout),
			Guard:       &payment.ReplayGuard{Rdb: rdb},
		}

		ledgerHandlers := &ledger.Handlers{Service: ledgerService}
		verifyHandlers := &verification.Handlers{Service: verifyService, Gateway: gateway}
		carbonHandlers := &carbon.Handlers{Service: carbonService}
		escrowHandlers := &escrow.Handlers{Service: escrowService}
		repHandlers := &reputation.Handlers{Service: repService}

		limited := rl.Handler()

		fapp.Get("/verify", verifyHandlers.Probe)
		fapp.Post("/verify", limited, verifyHandlers.Verify)
		fapp.Get("/status/:batchAsaId", verifyHandlers.Status)

		fapp.Post("/batch", limited, ledgerHandlers.CreateBatch)
		fapp.Post("/checkpoint", limited, ledgerHandlers.AppendCheckpoint)
		fapp.Post("/handoff/initiate", limited, ledgerHandlers.InitiateHandoff)
		fapp.Post("/handoff/confirm", limited, ledgerHandlers.ConfirmHandoff)
		fapp.Get("/batch/:id", ledgerHandlers.GetBatch)
		fapp.Get("/batch/:id/journey", ledgerHandlers.GetJourney)

		fapp.Post("/batch/:id/escrow/fund", limited, escrowHandlers.Fund)
		fapp.Post("/batch/:id/escrow/release", limited, escrowHandlers.Release)
		fapp.Get("/batch/:id/carbon", carbonHandlers.GetCarbon)

		fapp.Get("/farmer/:addr/reputation", repHandlers.GetReputation)
		fapp.Get("/farmer/:addr/payments", repHandlers.GetPayments)
		fapp.Get("/farmer/:addr/batches", ledgerHandlers.GetFarmerBatches)
	}

	return &App{Fiber: fapp, DB: db, Rdb: rdb, RateLimiter: rl}, nil
}
