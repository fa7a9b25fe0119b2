package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lawchat/lawchat-backend/internal/api/handlers"
	"github.com/lawchat/lawchat-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.ConversationService) {
	// API routes
	api := app.Group("/api/v1")

	// Session management
	api.Post("/sessions", handlers.CreateSession(svc))
	api.Get("/sessions", handlers.ListSessions(svc))
	api.Get("/sessions/:id/messages", handlers.GetSessionMessages(svc))
	api.Put("/sessions/:id", handlers.RenameSession(svc))
	api.Delete("/sessions/:id", handlers.DeleteSession(svc))
	api.Delete("/sessions", handlers.ClearHistory(svc))

	// Chat
	api.Post("/sessions/:id/messages", handlers.SubmitTurn(svc))

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "lawchat-backend",
		})
	})
}
