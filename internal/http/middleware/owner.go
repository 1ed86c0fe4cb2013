package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ksavin/snipurl/internal/http/util"
)

const ownerLocalKey = "owner_id"

// Owner extracts an optional owner identity from a bearer token. Requests
// without a token, or with an invalid one, proceed anonymously; endpoints
// that need an owner see a nil identity.
func Owner(tokens *util.TokenSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			if ownerID, err := tokens.Validate(token); err == nil {
				c.Locals(ownerLocalKey, ownerID)
			}
		}
		return c.Next()
	}
}

// OwnerFrom returns the authenticated owner id for the request, or nil for
// anonymous callers.
func OwnerFrom(c *fiber.Ctx) *string {
	if ownerID, ok := c.Locals(ownerLocalKey).(string); ok && ownerID != "" {
		return &ownerID
	}
	return nil
}
