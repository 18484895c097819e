package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// getAccountID resolves the caller's tenant from locals set by the auth
// middleware. Every handler in this package is tenant-scoped through it.
func getAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	accountIDStr, ok := c.Locals("accountID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	return accountID, nil
}
