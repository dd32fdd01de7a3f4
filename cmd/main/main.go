package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/env"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/router"

	"github.com/gdbrns/go-whatsapp-command-bot/internal"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/config"
)

func main() {
	log.SetLevel(env.GetEnvStringOrDefault("LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		log.Print(nil).Fatal("Invalid configuration: " + err.Error())
	}

	bot, err := internal.Startup(cfg)
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	ctxBot, cancelBot := context.WithCancel(context.Background())
	botDone := make(chan struct{})

	// Run the bot, a terminal outcome is logged and the process stays up until signalled
	go func() {
		defer close(botDone)
		err := bot.Lifecycle.Run(ctxBot)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Print(nil).Error("Bot stopped: " + err.Error())
		}
	}()

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Running Routines Tasks
	internal.Routines(c, cfg.WhatsApp, bot.Lifecycle)

	var app *fiber.App
	if cfg.Server.Enabled {
		app = newApp(bot)
		if cfg.Server.AdminSecret == "" {
			log.Print(nil).Warn("SERVER_ADMIN_SECRET is empty, the QR endpoint is unprotected")
		}

		go func() {
			if err := app.Listen(cfg.Server.Address + ":" + cfg.Server.Port); err != nil {
				log.Print(nil).Fatal(err.Error())
			}
		}()
	}

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if app != nil {
		if err := app.ShutdownWithContext(ctxShutdown); err != nil {
			log.Print(nil).Error(err.Error())
		}
	}

	// Try To Shutdown Cron
	<-c.Stop().Done()

	cancelBot()
	select {
	case <-botDone:
	case <-ctxShutdown.Done():
		log.Print(nil).Warn("Timed out waiting for the bot to disconnect")
	}

	bot.Shutdown(2 * time.Second)
}

func newApp(bot *internal.Bot) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          router.HttpErrorHandler,
		DisableStartupMessage: true,
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Secret",
		AllowMethods: "GET",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router Cache, QR codes rotate so they are never cached
	app.Use(router.HttpCacheInMemory(router.CacheTTLSeconds, router.BaseURL+"/qr"))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app, bot)

	return app
}
