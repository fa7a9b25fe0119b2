package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lawchat/lawchat-backend/internal/services"
)

// SubmitTurn runs one user turn: the user's message is persisted before the
// remote exchange starts, so it is never lost to a network failure. A failed
// exchange still returns 200 with a notice; the turn itself succeeded.
func SubmitTurn(svc *services.ConversationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := sessionID(c)
		if err != nil {
			return err
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		result, err := svc.SubmitTurn(c.Context(), id, req.Text)
		if err != nil {
			return renderError(c, err)
		}

		return c.JSON(result)
	}
}
