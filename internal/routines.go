package internal

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/lifecycle"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-command-bot/pkg/whatsapp"
)

type HealthSource interface {
	State() lifecycle.State
	Connected() bool
	Registered() bool
	MaskedIdentity() string
}

// Routines registers the periodic jobs and starts the scheduler.
func Routines(c *cron.Cron, cfg config.WhatsApp, source HealthSource) {
	log.Print(nil).Info("Running Routine Tasks")

	if cfg.HealthCheckCron {
		_, err := c.AddFunc("0 */5 * * * *", func() {
			healthCheck(source)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
		}
	} else {
		log.Print(nil).Info("Health check cron disabled")
	}

	if cfg.VersionRefreshCron {
		spec := cfg.VersionRefreshCronSpec
		_, err := c.AddFunc(spec, refreshVersion)
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", spec).Info("WA Web version refresh cron enabled")
		}
	}

	c.Start()
}

// healthCheck logs whether the live client is connected and logged in.
func healthCheck(source HealthSource) bool {
	entry := log.Print(nil).
		WithField("state", string(source.State())).
		WithField("identity", source.MaskedIdentity())

	if source.Connected() && source.Registered() {
		entry.Info("Client healthy")
		return true
	}
	entry.Warn("Client unhealthy")
	return false
}

// refreshVersion picks up a new WA Web version for the next client generation.
func refreshVersion() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, refreshed, err := pkgWhatsApp.RefreshWAVersion(ctx, false)
	versionStr := pkgWhatsApp.WAVersionString(status.CurrentVersion)
	if err != nil {
		log.Print(nil).WithField("version", versionStr).Error("WA Web version refresh failed: " + err.Error())
		return
	}
	log.Print(nil).WithField("version", versionStr).WithField("refreshed", refreshed).Info("WA Web version refresh completed")
}
