package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"BOT_NAME", "BOT_PREFIX", "BOT_OWNER_NUMBER", "BOT_OWNER_NAME", "BOT_USE_PAIRING_CODE",
		"BOT_AUTO_READ", "BOT_AUTO_RECONNECT", "BOT_RECONNECT_DELAY", "BOT_RECONNECT_MAX_ATTEMPTS",
		"BOT_IMAGE_URL", "BOT_COMMAND_RATE_PER_MINUTE", "WHATSAPP_DATASTORE_TYPE", "WHATSAPP_DATASTORE_URI",
		"SERVER_ENABLED", "SERVER_ADMIN_SECRET", "WEBHOOK_URLS", "WEBHOOK_ALLOW_PRIVATE",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBotName, cfg.Bot.Name)
	assert.Equal(t, DefaultPrefix, cfg.Bot.Prefix)
	assert.Equal(t, DefaultOwnerName, cfg.Bot.OwnerName)
	assert.False(t, cfg.Bot.UsePairingCode)
	assert.True(t, cfg.Bot.AutoRead)
	assert.True(t, cfg.Bot.AutoReconnect)
	assert.Zero(t, cfg.Bot.ReconnectDelay)
	assert.Zero(t, cfg.Bot.ReconnectMaxAttempt)
	assert.Equal(t, DefaultImageURL, cfg.Bot.ImageURL)
	assert.Equal(t, DefaultDatastoreType, cfg.WhatsApp.DatastoreType)
	assert.Equal(t, DefaultDatastoreURI, cfg.WhatsApp.DatastoreURI)
	assert.False(t, cfg.Server.Enabled)
	assert.Empty(t, cfg.Server.AdminSecret)
	assert.Empty(t, cfg.Webhook.URLs)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_NAME", "Nova")
	t.Setenv("BOT_PREFIX", "!")
	t.Setenv("BOT_OWNER_NUMBER", "+6281234567890")
	t.Setenv("BOT_USE_PAIRING_CODE", "true")
	t.Setenv("BOT_AUTO_RECONNECT", "false")
	t.Setenv("BOT_RECONNECT_DELAY", "3s")
	t.Setenv("WEBHOOK_URLS", "https://a.example.com/hook, ,https://b.example.com/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Nova", cfg.Bot.Name)
	assert.Equal(t, "!", cfg.Bot.Prefix)
	assert.Equal(t, "6281234567890", cfg.Bot.OwnerNumber)
	assert.True(t, cfg.Bot.UsePairingCode)
	assert.False(t, cfg.Bot.AutoReconnect)
	assert.Equal(t, 3*time.Second, cfg.Bot.ReconnectDelay)
	assert.Equal(t, []string{"https://a.example.com/hook", "https://b.example.com/hook"}, cfg.Webhook.URLs)
}

func TestLoadRejectsPairingWithoutOwner(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_USE_PAIRING_CODE", "true")

	_, err := Load()
	assert.ErrorContains(t, err, "BOT_USE_PAIRING_CODE requires BOT_OWNER_NUMBER")
}

func TestLoadRejectsInvalidOwnerNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_OWNER_NUMBER", "0812")

	_, err := Load()
	assert.ErrorContains(t, err, "BOT_OWNER_NUMBER")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{Bot: Bot{Prefix: " ", ImageURL: "nope", ReconnectMaxAttempt: -1}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "BOT_PREFIX")
	assert.ErrorContains(t, err, "BOT_IMAGE_URL")
	assert.ErrorContains(t, err, "BOT_RECONNECT_MAX_ATTEMPTS")
}

func TestLoadRejectsUndeliverableWebhookURLs(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_URLS", "http://hooks.example.com/bot,https://172.20.0.5/hook")

	_, err := Load()
	assert.ErrorContains(t, err, `WEBHOOK_URLS "http://hooks.example.com/bot"`)
	assert.ErrorContains(t, err, `WEBHOOK_URLS "https://172.20.0.5/hook"`)

	t.Setenv("WEBHOOK_ALLOW_PRIVATE", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Webhook.AllowPrivate)
}
