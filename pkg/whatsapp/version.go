package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"
)

type WAVersionRefreshStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  *time.Time               `json:"last_refreshed,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
}

var (
	waVersionRefreshGroup singleflight.Group

	waVersionRefreshMu       sync.RWMutex
	waVersionLastRefreshedAt *time.Time
	waVersionLastError       string
	waVersionMinInterval     = 10 * time.Minute

	fetchLatestVersion = whatsmeow.GetLatestVersion
)

// SetWAVersionRefreshMinInterval sets the throttle applied to non-forced refreshes.
func SetWAVersionRefreshMinInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	waVersionRefreshMu.Lock()
	waVersionMinInterval = d
	waVersionRefreshMu.Unlock()
}

func WAVersionString(v store.WAVersionContainer) string {
	return strconv.FormatUint(uint64(v[0]), 10) + "." + strconv.FormatUint(uint64(v[1]), 10) + "." + strconv.FormatUint(uint64(v[2]), 10)
}

func GetWAVersionRefreshStatus() WAVersionRefreshStatus {
	waVersionRefreshMu.RLock()
	defer waVersionRefreshMu.RUnlock()

	var last *time.Time
	if waVersionLastRefreshedAt != nil {
		t := *waVersionLastRefreshedAt
		last = &t
	}

	return WAVersionRefreshStatus{
		CurrentVersion: store.GetWAVersion(),
		LastRefreshed:  last,
		LastError:      waVersionLastError,
	}
}

func recordWAVersionRefresh(err error) {
	waVersionRefreshMu.Lock()
	defer waVersionRefreshMu.Unlock()
	now := time.Now()
	waVersionLastRefreshedAt = &now
	if err != nil {
		waVersionLastError = err.Error()
	} else {
		waVersionLastError = ""
	}
}

// RefreshWAVersion fetches the latest WhatsApp Web version and applies it globally.
// Unless force is set, calls within the minimum interval of the last attempt are skipped.
// The bool result reports whether a fetch was attempted.
func RefreshWAVersion(ctx context.Context, force bool) (WAVersionRefreshStatus, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	waVersionRefreshMu.RLock()
	last := waVersionLastRefreshedAt
	minInterval := waVersionMinInterval
	waVersionRefreshMu.RUnlock()
	if !force && minInterval > 0 && last != nil && time.Since(*last) < minInterval {
		return GetWAVersionRefreshStatus(), false, nil
	}

	_, err, _ := waVersionRefreshGroup.Do("refresh", func() (interface{}, error) {
		httpClient := &http.Client{Timeout: 15 * time.Second}
		latest, err := fetchLatestVersion(ctx, httpClient)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err != nil {
			recordWAVersionRefresh(err)
			return nil, err
		}

		store.SetWAVersion(*latest)
		recordWAVersionRefresh(nil)
		return store.GetWAVersion(), nil
	})
	return GetWAVersionRefreshStatus(), true, err
}
