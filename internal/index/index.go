package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"
)

func Index(botName string) fiber.Handler {
	message := botName + " is running"
	return func(c *fiber.Ctx) error {
		return router.ResponseSuccess(c, message)
	}
}
