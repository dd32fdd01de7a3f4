package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/env"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/validation"
)

const (
	DefaultBotName        = "WhatsApp Bot"
	DefaultPrefix         = "."
	DefaultOwnerName      = "Owner"
	DefaultImageURL       = "https://picsum.photos/600/400"
	DefaultDatastoreType  = "sqlite3"
	DefaultDatastoreURI   = "file:auth/session.db?_foreign_keys=on"
	DefaultWhatsAppLogLvl = "WARN"
)

type Bot struct {
	Name                string
	Prefix              string
	OwnerNumber         string
	OwnerName           string
	UsePairingCode      bool
	AutoRead            bool
	AutoReconnect       bool
	ReconnectDelay      time.Duration
	ReconnectMaxAttempt int
	ImageURL            string
	CommandRatePerMin   int
}

type WhatsApp struct {
	DatastoreType          string
	DatastoreURI           string
	ProxyURL               string
	LogLevel               string
	VersionRefreshInterval time.Duration
	HealthCheckCron        bool
	VersionRefreshCron     bool
	VersionRefreshCronSpec string
}

type Server struct {
	Enabled bool
	Address string
	Port    string
	// AdminSecret guards the QR endpoint when set.
	AdminSecret string
}

type Webhook struct {
	URLs       []string
	Secret     string
	Workers    int
	RetryLimit int
	// AllowPrivate permits plain HTTP and private network webhook hosts.
	AllowPrivate bool
}

type Config struct {
	Bot      Bot
	WhatsApp WhatsApp
	Server   Server
	Webhook  Webhook
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Bot: Bot{
			Name:                env.GetEnvStringOrDefault("BOT_NAME", DefaultBotName),
			Prefix:              env.GetEnvStringOrDefault("BOT_PREFIX", DefaultPrefix),
			OwnerNumber:         validation.NormalizePhone(env.GetEnvStringOrDefault("BOT_OWNER_NUMBER", "")),
			OwnerName:           env.GetEnvStringOrDefault("BOT_OWNER_NAME", DefaultOwnerName),
			UsePairingCode:      env.GetEnvBoolOrDefault("BOT_USE_PAIRING_CODE", false),
			AutoRead:            env.GetEnvBoolOrDefault("BOT_AUTO_READ", true),
			AutoReconnect:       env.GetEnvBoolOrDefault("BOT_AUTO_RECONNECT", true),
			ReconnectDelay:      env.GetEnvDurationOrDefault("BOT_RECONNECT_DELAY", 0),
			ReconnectMaxAttempt: env.GetEnvIntOrDefault("BOT_RECONNECT_MAX_ATTEMPTS", 0),
			ImageURL:            env.GetEnvStringOrDefault("BOT_IMAGE_URL", DefaultImageURL),
			CommandRatePerMin:   env.GetEnvIntOrDefault("BOT_COMMAND_RATE_PER_MINUTE", 0),
		},
		WhatsApp: WhatsApp{
			DatastoreType:          env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", DefaultDatastoreType),
			DatastoreURI:           env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", DefaultDatastoreURI),
			ProxyURL:               env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),
			LogLevel:               env.GetEnvStringOrDefault("WHATSAPP_LOG_LEVEL", DefaultWhatsAppLogLvl),
			VersionRefreshInterval: env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", 10*time.Minute),
			HealthCheckCron:        env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_HEALTH_CHECK_CRON", true),
			VersionRefreshCron:     env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false),
			// robfig/cron with seconds field, daily at 03:00:00
			VersionRefreshCronSpec: env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "0 0 3 * * *"),
		},
		Server: Server{
			Enabled: env.GetEnvBoolOrDefault("SERVER_ENABLED", false),
			Address: env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0"),
			Port:    env.GetEnvStringOrDefault("SERVER_PORT", "7001"),

			AdminSecret: env.GetEnvStringOrDefault("SERVER_ADMIN_SECRET", ""),
		},
		Webhook: Webhook{
			URLs:         env.GetEnvListOrDefault("WEBHOOK_URLS", nil),
			Secret:       env.GetEnvStringOrDefault("WEBHOOK_SECRET", ""),
			Workers:      env.GetEnvIntOrDefault("WEBHOOK_WORKERS", 2),
			RetryLimit:   env.GetEnvIntOrDefault("WEBHOOK_RETRY_LIMIT", 3),
			AllowPrivate: env.GetEnvBoolOrDefault("WEBHOOK_ALLOW_PRIVATE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Bot.Prefix) == "" {
		errs = append(errs, errors.New("BOT_PREFIX must not be empty"))
	}
	if c.Bot.OwnerNumber != "" {
		if err := validation.ValidatePhone(c.Bot.OwnerNumber); err != nil {
			errs = append(errs, fmt.Errorf("BOT_OWNER_NUMBER: %w", err))
		}
	}
	if c.Bot.UsePairingCode && c.Bot.OwnerNumber == "" {
		errs = append(errs, errors.New("BOT_USE_PAIRING_CODE requires BOT_OWNER_NUMBER"))
	}
	if c.Bot.ReconnectMaxAttempt < 0 {
		errs = append(errs, errors.New("BOT_RECONNECT_MAX_ATTEMPTS must not be negative"))
	}
	if c.Bot.CommandRatePerMin < 0 {
		errs = append(errs, errors.New("BOT_COMMAND_RATE_PER_MINUTE must not be negative"))
	}
	if err := validation.ValidateURL(c.Bot.ImageURL); err != nil {
		errs = append(errs, fmt.Errorf("BOT_IMAGE_URL: %w", err))
	}
	for _, u := range c.Webhook.URLs {
		if err := validation.ValidateWebhookURL(u, c.Webhook.AllowPrivate); err != nil {
			errs = append(errs, fmt.Errorf("WEBHOOK_URLS %q: %w", u, err))
		}
	}

	return errors.Join(errs...)
}
