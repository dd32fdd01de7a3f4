package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
)

var ErrClientClosed = errors.New("whatsapp client is closed")

// Client adapts *whatsmeow.Client to session.Client. One Client serves exactly one
// connection attempt; after it reports closed it must be discarded.
type Client struct {
	wa          *whatsmeow.Client
	store       session.CredentialStore
	httpClient  *http.Client
	pairDisplay string

	handlerID uint32
	mu        sync.RWMutex
	handlers  []session.Handler
	qrCancel  context.CancelFunc

	closed atomic.Bool
	log    *logrus.Entry
}

type ClientOptions struct {
	// PairDisplayName is shown on the phone when linking with a pairing code, "Browser (OS)".
	PairDisplayName string
	HTTPClient      *http.Client
}

func NewClient(wa *whatsmeow.Client, credStore session.CredentialStore, opts ClientOptions) *Client {
	c := newClient(credStore, opts)
	c.wa = wa
	c.handlerID = wa.AddEventHandler(c.handleEvent)
	return c
}

func newClient(credStore session.CredentialStore, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	display := opts.PairDisplayName
	if display == "" {
		display = "Chrome (Linux)"
	}
	return &Client{
		store:       credStore,
		httpClient:  httpClient,
		pairDisplay: display,
		log:         log.Session("whatsapp"),
	}
}

func MaskJID(jid string) string {
	if len(jid) < 4 {
		return jid
	}
	return jid[0:len(jid)-4] + "xxxx"
}

func (c *Client) AddEventHandler(handler session.Handler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	c.mu.Unlock()
}

func (c *Client) emit(evt session.Event) {
	c.mu.RLock()
	handlers := make([]session.Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, handler := range handlers {
		handler(evt)
	}
}

// emitClosed reports the first disconnect only, later ones describe the same teardown.
func (c *Client) emitClosed(reason session.DisconnectReason, detail string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.emit(session.ConnectionUpdate{Connection: session.StateClosed, Reason: reason, Detail: detail})
}

// Connect opens the websocket. Unregistered devices get a QR channel whose codes are
// forwarded as connection updates.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.emit(session.ConnectionUpdate{Connection: session.StateConnecting})

	if c.wa.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := c.wa.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("open qr channel: %w", err)
		}
		c.mu.Lock()
		c.qrCancel = cancel
		c.mu.Unlock()
		go c.forwardQR(qrChan)
	}

	if err := c.wa.Connect(); err != nil {
		return err
	}
	return nil
}

func (c *Client) forwardQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if c.closed.Load() {
				continue
			}
			c.emit(session.ConnectionUpdate{Connection: session.StateConnecting, QR: evt.Code})
		case whatsmeow.QRChannelSuccess.Event:
			c.log.Info("QR pairing completed")
		case whatsmeow.QRChannelTimeout.Event:
			c.emitClosed(session.ReasonQRTimeout, "qr codes expired without being scanned")
		case "error":
			detail := "qr channel error"
			if evt.Error != nil {
				detail = evt.Error.Error()
			}
			c.emitClosed(session.ReasonConnectFailure, detail)
		default:
			c.emitClosed(session.ReasonConnectFailure, evt.Event)
		}
	}
}

// Disconnect tears the client down for good: handlers are dropped, the socket is
// closed and the credential store released. No closed update is emitted.
func (c *Client) Disconnect() {
	c.closed.Store(true)

	c.mu.Lock()
	cancel := c.qrCancel
	c.qrCancel = nil
	c.handlers = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.wa != nil {
		c.wa.RemoveEventHandler(c.handlerID)
		c.wa.Disconnect()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.WithError(err).Warn("Failed to close credential store")
		}
	}
}

func (c *Client) IsConnected() bool {
	return c.wa != nil && c.wa.IsConnected()
}

func (c *Client) Registered() bool {
	return c.wa != nil && c.wa.Store != nil && c.wa.Store.ID != nil
}

func (c *Client) Identity() string {
	if !c.Registered() {
		return ""
	}
	return c.wa.Store.ID.String()
}

func (c *Client) SaveCredentials(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(ctx)
}

func (c *Client) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	if c.closed.Load() {
		return "", ErrClientClosed
	}
	return c.wa.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, c.pairDisplay)
}

func (c *Client) ReadMessages(ctx context.Context, keys []session.MessageKey) error {
	var errs []error
	for _, key := range keys {
		if key.FromMe {
			continue
		}
		ids := []types.MessageID{key.ID}
		if err := c.wa.MarkRead(ctx, ids, time.Now(), key.Chat, key.Sender); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) SendMessage(ctx context.Context, chat types.JID, content session.Content, opts session.SendOptions) (string, error) {
	if c.closed.Load() {
		return "", ErrClientClosed
	}

	msg := buildTextMessage(content.Text, opts.Quoted)
	if content.ImageURL != "" {
		var err error
		msg, err = c.buildImageMessage(ctx, content, opts.Quoted)
		if err != nil {
			return "", err
		}
	}

	resp, err := c.wa.SendMessage(ctx, chat, msg)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		c.emit(session.ConnectionUpdate{Connection: session.StateOpen})
	case *events.PairSuccess:
		c.emit(session.CredsUpdate{ID: e.ID.String()})
	case *events.LoggedOut:
		c.emitClosed(session.ReasonLoggedOut, fmt.Sprint(e.Reason))
	case *events.StreamReplaced:
		c.emitClosed(session.ReasonConnectionReplaced, "another client connected with the same credentials")
	case *events.Disconnected:
		c.emitClosed(session.ReasonConnectionLost, "")
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			c.emitClosed(session.ReasonLoggedOut, fmt.Sprint(e.Reason))
		} else {
			c.emitClosed(session.ReasonConnectFailure, fmt.Sprintf("%v: %s", e.Reason, e.Message))
		}
	case *events.ClientOutdated:
		c.emitClosed(session.ReasonConnectFailure, "client version outdated")
	case *events.TemporaryBan:
		c.emitClosed(session.ReasonTemporaryBan, fmt.Sprint(e))
	case *events.KeepAliveTimeout:
		c.log.Warn(fmt.Sprintf("Keepalive timeout, errors=%d, lastSuccess=%s", e.ErrorCount, e.LastSuccess.Format(time.RFC3339)))
	case *events.KeepAliveRestored:
		c.log.Info("Keepalive restored")
	case *events.Message:
		c.emit(session.MessagesUpsert{Type: session.UpsertNotify, Messages: []session.InboundMessage{inboundFromEvent(e)}})
	case *events.HistorySync:
		if msgs := c.historyMessages(e); len(msgs) > 0 {
			c.emit(session.MessagesUpsert{Type: session.UpsertAppend, Messages: msgs})
		}
	}
}

func inboundFromEvent(e *events.Message) session.InboundMessage {
	return session.InboundMessage{
		Key: session.MessageKey{
			ID:     e.Info.ID,
			Chat:   e.Info.Chat,
			Sender: e.Info.Sender,
			FromMe: e.Info.IsFromMe,
		},
		PushName:  e.Info.PushName,
		Timestamp: e.Info.Timestamp,
		Message:   e.Message,
	}
}

func (c *Client) historyMessages(e *events.HistorySync) []session.InboundMessage {
	if c.wa == nil || e.Data == nil {
		return nil
	}
	var out []session.InboundMessage
	for _, conv := range e.Data.GetConversations() {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil {
			continue
		}
		for _, hm := range conv.GetMessages() {
			parsed, err := c.wa.ParseWebMessage(chatJID, hm.GetMessage())
			if err != nil {
				continue
			}
			out = append(out, inboundFromEvent(parsed))
		}
	}
	return out
}
