// Package routes defines the API routing configuration. It wires the
// store, processor client and orchestrator together and mounts the
// handlers behind authentication.
package routes

import (
	"net/http"

	"cardgate/internal/config"
	"cardgate/internal/gateway"
	"cardgate/internal/handlers"
	"cardgate/internal/middleware"
	"cardgate/internal/repositories"
	"cardgate/internal/repositories/cache"
	"cardgate/internal/services/card"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes builds the dependency graph and mounts all routes.
func SetupRoutes(app *fiber.App, db *gorm.DB, cacheService *cache.CacheService) {
	cardRepo := repositories.NewCardRepository(db, cacheService)

	gatewayClient := gateway.NewClient(gateway.ConfigFromEnv(), http.DefaultClient)

	cardService := card.NewService(cardRepo, gatewayClient, card.Config{
		AllowReusable:   config.GetBoolEnv("ALLOW_REUSABLE_CHARGES", true),
		MaxStepUpRounds: config.GetIntEnv("MAX_STEP_UP_ROUNDS", card.DefaultMaxStepUpRounds),
	})

	cardHandler := handlers.NewCardHandler(cardService)
	chargeHandler := handlers.NewChargeHandler(cardService)
	auth := middleware.NewAuthMiddleware()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", auth.Handler)

	cards := api.Group("/cards")
	cards.Post("/", cardHandler.AddCard)
	cards.Get("/", cardHandler.GetCards)
	cards.Get("/count", cardHandler.CountCards)
	cards.Post("/lookup", cardHandler.LookupCard)
	cards.Post("/charge", chargeHandler.ChargeNewCard)
	cards.Post("/charge/complete", chargeHandler.CompleteAddCard)
	cards.Get("/:id", cardHandler.GetCard)
	cards.Delete("/:id", cardHandler.DeleteCard)
	cards.Post("/:id/debit", chargeHandler.DebitCard)

	charges := api.Group("/charges")
	charges.Post("/complete", chargeHandler.CompleteCharge)
	charges.Get("/:reference", chargeHandler.CheckStatus)

	api.Get("/transactions/verify/:reference", chargeHandler.VerifyTransaction)
}
