package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Datastore is the credential store: a whatsmeow sql container holding one device.
type Datastore struct {
	container *sqlstore.Container
	driver    string

	mu     sync.Mutex
	device *store.Device
}

func OpenDatastore(ctx context.Context, driver string, dsn string, logger waLog.Logger) (*Datastore, error) {
	driver = normalizeDatastoreDriver(driver)
	dsn = normalizeDatastoreDSN(driver, dsn)

	if driver == "sqlite3" {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, fmt.Errorf("prepare sqlite directory: %w", err)
		}
	}

	container, err := sqlstore.New(ctx, driver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s datastore: %w", driver, err)
	}

	return &Datastore{container: container, driver: driver}, nil
}

// Load returns the stored device, or a fresh unregistered one when none exists.
func (d *Datastore) Load(ctx context.Context) (*store.Device, error) {
	device, err := d.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	d.mu.Lock()
	d.device = device
	d.mu.Unlock()
	return device, nil
}

// Save persists the loaded device. Unregistered devices have nothing to persist yet.
func (d *Datastore) Save(ctx context.Context) error {
	d.mu.Lock()
	device := d.device
	d.mu.Unlock()
	if device == nil || device.ID == nil {
		return nil
	}
	return device.Save(ctx)
}

func (d *Datastore) Close() error {
	if d == nil || d.container == nil {
		return nil
	}
	return d.container.Close()
}

func (d *Datastore) Driver() string {
	return d.driver
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgresql", "pgx":
		return "pgx"
	case "postgres", "pq":
		return "postgres"
	case "", "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func normalizeDatastoreDSN(driver string, dsn string) string {
	if driver != "pgx" {
		return dsn
	}
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func ensureSQLiteDir(dsn string) error {
	path := sqlitePath(dsn)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return nil
}
