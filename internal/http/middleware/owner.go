package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// OwnerHeader carries the opaque reference of the user the request acts for.
	OwnerHeader = "X-Owner-ID"
	// OwnerLocalKey is the key used to store the owner in Fiber's context locals.
	OwnerLocalKey = "owner_id"
)

// Owner requires an owner reference on every request it guards and stores it
// under OwnerLocalKey. There is no authentication: the header is trusted.
func Owner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := strings.TrimSpace(c.Get(OwnerHeader))
		if owner == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "owner reference is required")
		}
		c.Locals(OwnerLocalKey, owner)
		return c.Next()
	}
}

// OwnerFrom returns the owner stored by Owner, or "".
func OwnerFrom(c *fiber.Ctx) string {
	owner, _ := c.Locals(OwnerLocalKey).(string)
	return owner
}
