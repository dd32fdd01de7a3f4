package internal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/command"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/lifecycle"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-command-bot/pkg/whatsapp"
)

// Bot bundles the wired components of a running bot.
type Bot struct {
	Config     *config.Config
	Commands   *command.Registry
	Dispatcher *command.Dispatcher
	Webhooks   *webhook.Engine
	Lifecycle  *lifecycle.Lifecycle
}

// Startup wires the bot against the real WhatsApp client factory.
func Startup(cfg *config.Config) (*Bot, error) {
	log.Print(nil).Info("Running Startup Tasks")
	log.Print(nil).Info("Using datastore " + pkgWhatsApp.DescribeDatastore(cfg.WhatsApp.DatastoreType, cfg.WhatsApp.DatastoreURI))

	factory := pkgWhatsApp.NewFactory(pkgWhatsApp.FactoryConfig{
		DatastoreType:          cfg.WhatsApp.DatastoreType,
		DatastoreURI:           cfg.WhatsApp.DatastoreURI,
		ProxyURL:               cfg.WhatsApp.ProxyURL,
		LogLevel:               cfg.WhatsApp.LogLevel,
		DisplayName:            cfg.Bot.Name,
		VersionRefreshInterval: cfg.WhatsApp.VersionRefreshInterval,
	})
	return NewBot(cfg, factory, os.Stdout)
}

func NewBot(cfg *config.Config, factory session.Factory, display io.Writer) (*Bot, error) {
	webhooks := webhook.NewEngine(webhook.Config{
		URLs:         cfg.Webhook.URLs,
		Secret:       cfg.Webhook.Secret,
		BotName:      cfg.Bot.Name,
		Workers:      cfg.Webhook.Workers,
		RetryLimit:   cfg.Webhook.RetryLimit,
		AllowPrivate: cfg.Webhook.AllowPrivate,
	})

	registry := command.NewRegistry()
	err := command.RegisterBuiltins(registry, command.Identity{
		BotName:     cfg.Bot.Name,
		OwnerName:   cfg.Bot.OwnerName,
		OwnerNumber: cfg.Bot.OwnerNumber,
		ImageURL:    cfg.Bot.ImageURL,
	})
	if err != nil {
		webhooks.Shutdown()
		return nil, fmt.Errorf("register commands: %w", err)
	}

	dispatcher := command.NewDispatcher(registry, command.Options{
		Prefix:        cfg.Bot.Prefix,
		AutoRead:      cfg.Bot.AutoRead,
		RatePerMinute: cfg.Bot.CommandRatePerMin,
		Notifier:      webhooks,
	})

	lc := lifecycle.New(lifecycle.Options{
		BotName:        cfg.Bot.Name,
		UsePairingCode: cfg.Bot.UsePairingCode,
		PairingPhone:   cfg.Bot.OwnerNumber,
		AutoReconnect:  cfg.Bot.AutoReconnect,
		ReconnectDelay: cfg.Bot.ReconnectDelay,
		MaxAttempts:    cfg.Bot.ReconnectMaxAttempt,
	}, factory, lifecycle.NewTerminalDisplay(display, cfg.Bot.Name), dispatcher, webhooks)

	return &Bot{
		Config:     cfg,
		Commands:   registry,
		Dispatcher: dispatcher,
		Webhooks:   webhooks,
		Lifecycle:  lc,
	}, nil
}

// Shutdown flushes pending webhook deliveries, waiting at most timeout.
func (b *Bot) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		b.Webhooks.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Print(nil).Warn("Timed out waiting for webhook deliveries")
	}
}
