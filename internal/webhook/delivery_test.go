package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultCollector struct {
	mu      sync.Mutex
	results []DeliveryResult
}

func (c *resultCollector) add(r DeliveryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *resultCollector) snapshot() []DeliveryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DeliveryResult(nil), c.results...)
}

func TestNewEngineWithoutURLsIsNoop(t *testing.T) {
	engine := NewEngine(Config{})
	assert.Nil(t, engine)

	assert.NotPanics(t, func() {
		engine.Notify(EventConnectionOpen, nil)
		engine.Shutdown()
	})
}

func TestEngineDeliversSignedEvent(t *testing.T) {
	var (
		gotBody   []byte
		gotHeader http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	collector := &resultCollector{}
	engine := NewEngine(Config{
		URLs:         []string{server.URL},
		Secret:       "s3cret",
		BotName:      "TestBot",
		AllowPrivate: true,
		OnResult:     collector.add,
	})
	require.NotNil(t, engine)

	engine.Notify(EventCommandExecuted, map[string]interface{}{"command": "ping"})
	engine.Shutdown()

	results := collector.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, DeliverySuccess, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts)

	var event WebhookEvent
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, EventCommandExecuted, event.EventType)
	assert.Equal(t, "TestBot", event.Bot)
	assert.Equal(t, "ping", event.Data["command"])
	assert.NotEmpty(t, event.ID)

	assert.Equal(t, GenerateSignature(gotBody, "s3cret"), gotHeader.Get("X-Webhook-Signature"))
	assert.Equal(t, string(EventCommandExecuted), gotHeader.Get("X-Webhook-Event"))
	assert.Equal(t, event.ID, gotHeader.Get("X-Webhook-ID"))
}

func TestEngineRetriesUntilSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector := &resultCollector{}
	engine := NewEngine(Config{
		URLs:         []string{server.URL},
		RetryLimit:   3,
		RetryBackoff: time.Millisecond,
		AllowPrivate: true,
		OnResult:     collector.add,
	})

	engine.Notify(EventConnectionClosed, nil)
	engine.Shutdown()

	results := collector.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, DeliverySuccess, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEngineReportsFailureAfterRetryLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	collector := &resultCollector{}
	engine := NewEngine(Config{
		URLs:         []string{server.URL},
		RetryLimit:   2,
		RetryBackoff: time.Millisecond,
		AllowPrivate: true,
		OnResult:     collector.add,
	})

	engine.Notify(EventConnectionLoggedOut, nil)
	engine.Shutdown()

	results := collector.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, DeliveryFailed, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Contains(t, results[0].LastError, "HTTP 500")
}

func TestEngineRejectsPrivateURLs(t *testing.T) {
	collector := &resultCollector{}
	engine := NewEngine(Config{
		URLs:     []string{"http://example.com/hook", "https://192.168.1.10/hook", "https://172.20.0.5/hook"},
		OnResult: collector.add,
	})

	engine.Notify(EventConnectionOpen, nil)
	engine.Shutdown()

	results := collector.snapshot()
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, DeliveryFailed, r.Status)
		assert.Zero(t, r.Attempts)
	}
}

func TestGenerateSignature(t *testing.T) {
	sig := GenerateSignature([]byte(`{"a":1}`), "key")
	assert.Len(t, sig, len("sha256=")+64)
	assert.Equal(t, sig, GenerateSignature([]byte(`{"a":1}`), "key"))
	assert.NotEqual(t, sig, GenerateSignature([]byte(`{"a":1}`), "other"))
}
