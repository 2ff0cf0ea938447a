package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/db"
	"github.com/peerproof/backend/internal/events"
	apphttp "github.com/peerproof/backend/internal/http"
	"github.com/peerproof/backend/internal/http/handlers"
	"github.com/peerproof/backend/internal/repositories"
	"github.com/peerproof/backend/internal/services"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	nonceRepo := repositories.NewNonceRepo(pool)
	listingRepo := repositories.NewListingRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	badgeRepo := repositories.NewBadgeRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Ledger
	ledger := solana.NewClient(cfg.SolanaRPCURL, cfg.LedgerTimeout, log)

	// Services
	authService := services.NewAuthService(nonceRepo, userRepo, cfg, log)
	listingService := services.NewListingService(listingRepo, log)
	escrowService := services.NewEscrowService(listingRepo, escrowRepo, publisher, cfg, log)
	paymentService := services.NewPaymentService(escrowRepo, ledger, publisher, cfg.PaymentScanLimit, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	listingHandler := handlers.NewListingHandler(listingService, escrowService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, paymentService, log)
	profileHandler := handlers.NewProfileHandler(userRepo, badgeRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, listingHandler, escrowHandler, profileHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
