package middleware

import (
	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// RequireAdminKey guards operator-only endpoints. The caller supplies the
// plaintext key via ?key= or the X-Admin-Key header; only the bcrypt hash
// lives in config.
func RequireAdminKey(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			return response.Error(c, "Admin endpoints disabled", fiber.StatusForbidden)
		}
		key := c.Query("key")
		if key == "" {
			key = c.Get("X-Admin-Key")
		}
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			return response.Error(c, "Unauthorized", fiber.StatusForbidden)
		}
		return c.Next()
	}
}
