package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/http/handlers"
	"github.com/peerproof/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	listingHandler *handlers.ListingHandler,
	escrowHandler *handlers.EscrowHandler,
	profileHandler *handlers.ProfileHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Public browse and reputation lookups
	api.Get("/listings", listingHandler.ListListings)
	api.Get("/listings/:id", listingHandler.GetListing)
	api.Get("/profile/:wallet", profileHandler.GetProfile)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Listings
	protected.Post("/listings", listingHandler.CreateListing)
	protected.Get("/me/listings", listingHandler.MyListings)
	protected.Post("/listings/:id/buy", listingHandler.Buy)
	protected.Get("/listings/:id/pay-url", listingHandler.PayURL)

	// Escrows
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Post("/escrows/:id/confirm", escrowHandler.ConfirmDelivery)
	protected.Post("/escrows/:id/cancel", escrowHandler.Cancel)
	protected.Post("/escrows/:id/verify-payment", escrowHandler.VerifyPayment)
	protected.Get("/purchases", escrowHandler.ListPurchases)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
