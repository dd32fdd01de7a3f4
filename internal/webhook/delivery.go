package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/validation"
)

type Config struct {
	URLs       []string
	Secret     string
	BotName    string
	Workers    int
	RetryLimit int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// AllowPrivate permits plain HTTP and private network hosts.
	AllowPrivate bool
	HTTPClient   *http.Client
	// OnResult, when set, observes every finished delivery.
	OnResult func(DeliveryResult)
}

type Engine struct {
	cfg        Config
	httpClient *http.Client
	queue      chan *deliveryTask
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

type deliveryTask struct {
	url   string
	event WebhookEvent
}

// NewEngine starts the delivery workers. It returns nil when no URL is configured,
// a nil *Engine is a valid no-op notifier.
func NewEngine(cfg Config) *Engine {
	if len(cfg.URLs) == 0 {
		return nil
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := &Engine{
		cfg:        cfg,
		httpClient: httpClient,
		queue:      make(chan *deliveryTask, 256),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		engine.wg.Add(1)
		go engine.worker()
	}

	return engine
}

// Shutdown stops accepting events, drains the queue and waits for the workers.
func (e *Engine) Shutdown() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.queue)
		e.wg.Wait()
		e.cancel()
	})
}

// Notify queues an event for every configured URL without blocking.
func (e *Engine) Notify(eventType EventType, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.Dispatch(WebhookEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Bot:       e.cfg.BotName,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (e *Engine) Dispatch(event WebhookEvent) {
	if e == nil || e.ctx.Err() != nil {
		return
	}
	defer func() {
		// the queue may close concurrently during shutdown
		_ = recover()
	}()

	for _, target := range e.cfg.URLs {
		select {
		case e.queue <- &deliveryTask{url: target, event: event}:
		default:
			log.Session("webhook").WithField("event", string(event.EventType)).Warn("Webhook queue full, event dropped")
		}
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for task := range e.queue {
		e.report(e.deliver(task))
	}
}

func (e *Engine) report(result DeliveryResult) {
	entry := log.Session("webhook").
		WithField("event", string(result.EventType)).
		WithField("attempts", result.Attempts)
	if result.Status == DeliverySuccess {
		entry.Debug("Webhook delivered")
	} else {
		entry.WithField("error", result.LastError).Warn("Webhook delivery failed")
	}
	if e.cfg.OnResult != nil {
		e.cfg.OnResult(result)
	}
}

func (e *Engine) deliver(task *deliveryTask) DeliveryResult {
	result := DeliveryResult{URL: task.url, EventID: task.event.ID, EventType: task.event.EventType, Status: DeliveryFailed}

	if err := e.validateURL(task.url); err != nil {
		result.LastError = err.Error()
		return result
	}

	payload, err := json.Marshal(task.event)
	if err != nil {
		result.LastError = err.Error()
		return result
	}

	signature := GenerateSignature(payload, e.cfg.Secret)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryLimit; attempt++ {
		result.Attempts = attempt
		lastErr = e.post(task, payload, signature)
		if lastErr == nil {
			result.Status = DeliverySuccess
			return result
		}
		if attempt < e.cfg.RetryLimit {
			select {
			case <-time.After(time.Duration(attempt) * e.cfg.RetryBackoff):
			case <-e.ctx.Done():
				result.LastError = lastErr.Error()
				return result
			}
		}
	}

	result.LastError = lastErr.Error()
	return result
}

func (e *Engine) post(task *deliveryTask, payload []byte, signature string) error {
	req, err := http.NewRequestWithContext(e.ctx, http.MethodPost, task.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", string(task.event.EventType))
	req.Header.Set("X-Webhook-ID", task.event.ID)
	req.Header.Set("User-Agent", "WhatsApp-Command-Bot/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
}

// GenerateSignature returns the "sha256=<hex>" HMAC of payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (e *Engine) validateURL(rawURL string) error {
	return validation.ValidateWebhookURL(rawURL, e.cfg.AllowPrivate)
}
