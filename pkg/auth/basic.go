package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"
)

const AdminSecretHeader = "X-Admin-Secret"

// AdminAuth validates the X-Admin-Secret header. An empty secret leaves the route open.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		adminSecret := c.Get(AdminSecretHeader)
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}
		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(secret)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}
		return c.Next()
	}
}
