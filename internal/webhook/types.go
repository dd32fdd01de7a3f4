package webhook

import (
	"time"
)

type EventType string

const (
	EventConnectionOpen      EventType = "connection.open"
	EventConnectionClosed    EventType = "connection.closed"
	EventConnectionLoggedOut EventType = "connection.logged_out"
	EventCommandExecuted     EventType = "command.executed"
)

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

type WebhookEvent struct {
	ID        string                 `json:"id"`
	EventType EventType              `json:"event_type"`
	Bot       string                 `json:"bot"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// DeliveryResult is reported once per event and URL after the last attempt.
type DeliveryResult struct {
	URL       string
	EventID   string
	EventType EventType
	Status    DeliveryStatus
	Attempts  int
	LastError string
}
