package whatsapp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
)

type FactoryConfig struct {
	DatastoreType string
	DatastoreURI  string
	ProxyURL      string
	LogLevel      string
	// DisplayName is the device name shown under linked devices.
	DisplayName            string
	VersionRefreshInterval time.Duration
}

// Factory builds a fresh client for every connection attempt: credential store,
// protocol version, device properties and socket are all set up from scratch.
type Factory struct {
	cfg FactoryConfig
}

func NewFactory(cfg FactoryConfig) *Factory {
	SetWAVersionRefreshMinInterval(cfg.VersionRefreshInterval)
	return &Factory{cfg: cfg}
}

func (f *Factory) Initialize(ctx context.Context) (session.Client, error) {
	logger := log.Session("whatsapp")

	datastore, err := OpenDatastore(ctx, f.cfg.DatastoreType, f.cfg.DatastoreURI, log.WhatsApp("Database", f.cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	device, err := datastore.Load(ctx)
	if err != nil {
		_ = datastore.Close()
		return nil, err
	}

	// Every generation negotiates the version again, an outdated close must not retry with a stale one.
	status, _, err := RefreshWAVersion(ctx, true)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch latest WhatsApp Web version, using " + WAVersionString(status.CurrentVersion))
	} else {
		logger.Info("Using WhatsApp Web version " + WAVersionString(status.CurrentVersion))
	}

	displayName := strings.TrimSpace(f.cfg.DisplayName)
	if displayName == "" {
		displayName = runtime.GOOS
	}
	store.DeviceProps.Os = proto.String(displayName)
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	wa := whatsmeow.NewClient(device, log.WhatsApp("Client", f.cfg.LogLevel))
	if len(f.cfg.ProxyURL) > 0 {
		wa.SetProxyAddress(f.cfg.ProxyURL)
	}
	// Reconnects are driven by the bot lifecycle with a fresh client each time.
	wa.EnableAutoReconnect = false
	wa.AutoTrustIdentity = true

	return NewClient(wa, datastore, ClientOptions{
		PairDisplayName: "Chrome (" + runtime.GOOS + ")",
	}), nil
}

// DescribeDatastore returns the driver and a redacted DSN for logging.
func DescribeDatastore(driver string, dsn string) string {
	driver = normalizeDatastoreDriver(driver)
	if driver == "sqlite3" {
		return fmt.Sprintf("%s (%s)", driver, sqlitePath(dsn))
	}
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			dsn = dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return fmt.Sprintf("%s (%s)", driver, dsn)
}
