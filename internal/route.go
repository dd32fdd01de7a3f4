package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"

	ctlIndex "github.com/gdbrns/go-whatsapp-command-bot/internal/index"
	ctlStatus "github.com/gdbrns/go-whatsapp-command-bot/internal/status"
)

func Routes(app *fiber.App, bot *Bot) {
	indexHandler := ctlIndex.Index(bot.Config.Bot.Name)
	statusHandler := ctlStatus.New(bot.Config.Bot.Name, bot.Lifecycle)

	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", indexHandler)
	} else {
		app.Get(router.BaseURL, indexHandler)
		app.Get(router.BaseURL+"/", indexHandler)
	}

	// Route for Bot Status
	// ---------------------------------------------
	app.Get(router.BaseURL+"/status", statusHandler.Status)
	app.Get(router.BaseURL+"/qr", auth.AdminAuth(bot.Config.Server.AdminSecret), statusHandler.QR)
}
