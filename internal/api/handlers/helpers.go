package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lawchat/lawchat-backend/internal/services"
)

// sessionID parses the :id route parameter.
func sessionID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return id, nil
}

// renderError maps a classified service failure onto an HTTP status. The
// service never leaks raw low-level errors, so the body is safe to return.
func renderError(c *fiber.Ctx, err error) error {
	resp := fiber.Map{"error": err.Error()}

	status := fiber.StatusInternalServerError
	var fail *services.Failure
	switch {
	case errors.Is(err, services.ErrEmptyInput),
		errors.Is(err, services.ErrConfirmationRequired):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrTurnInFlight):
		status = fiber.StatusConflict
	case errors.As(err, &fail):
		resp["kind"] = fail.Kind
		switch fail.Kind {
		case services.FailureNotFound:
			status = fiber.StatusNotFound
		case services.FailureTransport, services.FailureServer:
			status = fiber.StatusBadGateway
		}
	}

	return c.Status(status).JSON(resp)
}
