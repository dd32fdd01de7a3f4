// Package session defines the typed events and the client capabilities the bot
// consumes from the WhatsApp protocol library.
package session

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
)

type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosed     ConnectionState = "closed"
)

// DisconnectReason accompanies a closed ConnectionUpdate.
type DisconnectReason string

const (
	ReasonNone               DisconnectReason = ""
	ReasonLoggedOut          DisconnectReason = "logged_out"
	ReasonConnectionLost     DisconnectReason = "connection_lost"
	ReasonConnectionReplaced DisconnectReason = "connection_replaced"
	ReasonConnectFailure     DisconnectReason = "connect_failure"
	ReasonQRTimeout          DisconnectReason = "qr_timeout"
	ReasonTemporaryBan       DisconnectReason = "temporary_ban"
)

type UpsertType string

const (
	// UpsertNotify marks messages received live.
	UpsertNotify UpsertType = "notify"
	// UpsertAppend marks messages replayed from history sync.
	UpsertAppend UpsertType = "append"
)

// Event is one of ConnectionUpdate, MessagesUpsert or CredsUpdate.
type Event interface {
	eventKind() string
}

type Handler func(Event)

type ConnectionUpdate struct {
	Connection ConnectionState
	Reason     DisconnectReason
	QR         string
	// Detail carries the library's description of the failure, if any.
	Detail string
}

type MessagesUpsert struct {
	Type     UpsertType
	Messages []InboundMessage
}

// CredsUpdate fires whenever the library rotated or registered credentials.
type CredsUpdate struct {
	ID string
}

func (ConnectionUpdate) eventKind() string { return "connection.update" }
func (MessagesUpsert) eventKind() string   { return "messages.upsert" }
func (CredsUpdate) eventKind() string      { return "creds.update" }

// Kind names the event the way the bot logs it.
func Kind(evt Event) string {
	if evt == nil {
		return ""
	}
	return evt.eventKind()
}

type MessageKey struct {
	ID     types.MessageID
	Chat   types.JID
	Sender types.JID
	FromMe bool
}

type InboundMessage struct {
	Key       MessageKey
	PushName  string
	Timestamp time.Time
	Message   *waE2E.Message
}

// Text returns the plain conversation text, falling back to the extended text.
func (m InboundMessage) Text() string {
	if m.Message == nil {
		return ""
	}
	if text := m.Message.GetConversation(); text != "" {
		return text
	}
	return m.Message.GetExtendedTextMessage().GetText()
}

// Content describes an outbound message. ImageURL takes precedence over Text.
type Content struct {
	Text     string
	ImageURL string
	Caption  string
}

type SendOptions struct {
	Quoted *InboundMessage
}

// Sender is the part of the client the command dispatcher needs.
type Sender interface {
	SendMessage(ctx context.Context, chat types.JID, content Content, opts SendOptions) (string, error)
	ReadMessages(ctx context.Context, keys []MessageKey) error
}

type Client interface {
	Sender

	AddEventHandler(handler Handler)
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	Registered() bool
	Identity() string
	SaveCredentials(ctx context.Context) error
}

type CredentialStore interface {
	Load(ctx context.Context) (*store.Device, error)
	Save(ctx context.Context) error
	Close() error
}

// Factory runs the full initialization sequence and returns a fresh client.
type Factory interface {
	Initialize(ctx context.Context) (Client, error)
}

type FactoryFunc func(ctx context.Context) (Client, error)

func (f FactoryFunc) Initialize(ctx context.Context) (Client, error) {
	return f(ctx)
}
