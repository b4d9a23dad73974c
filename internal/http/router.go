package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/influnest/backend/internal/config"
	"github.com/influnest/backend/internal/http/handlers"
	"github.com/influnest/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	campaignHandler *handlers.CampaignHandler,
	oracleHandler *handlers.OracleHandler,
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

	rateLimit := middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute)

	// Token exchange (public, guarded by the shared identity secret;
	// rate-limited by IP since there is no caller identity yet)
	api.Post("/auth/token", rateLimit, authHandler.IssueToken)

	// Protected endpoints, rate-limited per authenticated address
	protected := api.Group("", middleware.AuthMiddleware(cfg, log), rateLimit)

	// Campaigns
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:id", campaignHandler.GetCampaign)
	protected.Post("/campaigns/:id/fund", campaignHandler.FundCampaign)
	protected.Post("/campaigns/:id/posts", campaignHandler.AddPost)
	protected.Post("/campaigns/:id/metrics", campaignHandler.UpdateMetrics)
	protected.Post("/campaigns/:id/cancel", campaignHandler.CancelCampaign)
	protected.Post("/campaigns/:id/expire", campaignHandler.ExpireCampaign)
	protected.Get("/campaigns/:id/vault", campaignHandler.GetVault)
	protected.Get("/campaigns/:id/events", campaignHandler.GetCampaignEvents)

	// Oracle registry
	protected.Get("/oracle", oracleHandler.GetOracle)
	protected.Post("/oracle/rotate", oracleHandler.RotateOracle)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
