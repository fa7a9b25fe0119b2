package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lawchat/lawchat-backend/internal/services"
)

// CreateSession starts a fresh chat session seeded with the welcome message
func CreateSession(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.NewSession(c.Context())
		if err != nil {
			return renderError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// ListSessions returns the history index: one entry per session, most
// recently active first
func ListSessions(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := svc.ListHistory(c.Context())
		if err != nil {
			return renderError(c, err)
		}

		return c.JSON(fiber.Map{
			"sessions": entries,
		})
	}
}

// GetSessionMessages loads a session's conversation
func GetSessionMessages(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := sessionID(c)
		if err != nil {
			return err
		}

		view, err := svc.SwitchSession(c.Context(), id)
		if err != nil {
			return renderError(c, err)
		}

		return c.JSON(view)
	}
}

// RenameSession updates a session's display name
func RenameSession(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := sessionID(c)
		if err != nil {
			return err
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if err := svc.RenameSession(c.Context(), id, req.Name); err != nil {
			return renderError(c, err)
		}

		return c.JSON(fiber.Map{
			"message": "Session renamed successfully",
		})
	}
}

// DeleteSession removes a session and all its messages
func DeleteSession(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := sessionID(c)
		if err != nil {
			return err
		}

		if err := svc.DeleteSession(c.Context(), id); err != nil {
			return renderError(c, err)
		}

		return c.JSON(fiber.Map{
			"message": "Session deleted successfully",
		})
	}
}

// ClearHistory wipes every session and message, then starts a fresh
// welcome session. The request must carry explicit confirmation.
func ClearHistory(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Confirm bool `json:"confirm"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		view, err := svc.ClearHistory(c.Context(), req.Confirm)
		if err != nil {
			return renderError(c, err)
		}

		return c.JSON(view)
	}
}
