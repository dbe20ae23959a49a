package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shoppy/backend/internal/services"
	"github.com/shoppy/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// accessError maps AccessService failures onto the uniform error envelope.
func accessError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrInsufficientRole):
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
}
