// Package lifecycle keeps the bot connected: it owns the live session client,
// presents pairing material and replaces the client after every disconnect.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/whatsapp"
)

var (
	ErrLoggedOut         = errors.New("session logged out")
	ErrReconnectDisabled = errors.New("connection closed and auto-reconnect is disabled")
	ErrRestartLimit      = errors.New("restart limit reached without reconnecting")
	ErrAlreadyRunning    = errors.New("lifecycle is already running")
)

type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateTerminated State = "terminated"
)

type MessageHandler interface {
	HandleUpsert(ctx context.Context, client session.Sender, batch session.MessagesUpsert)
}

type Notifier interface {
	Notify(eventType webhook.EventType, data map[string]interface{})
}

type Options struct {
	BotName        string
	UsePairingCode bool
	PairingPhone   string
	AutoReconnect  bool
	// ReconnectDelay is waited before each restart.
	ReconnectDelay time.Duration
	// MaxAttempts bounds consecutive restarts that never reach open. 0 means unlimited.
	MaxAttempts int
}

type closeEvent struct {
	generation uint64
	update     session.ConnectionUpdate
}

type Lifecycle struct {
	opts     Options
	factory  session.Factory
	display  Display
	messages MessageHandler
	notifier Notifier
	log      *logrus.Entry

	mu               sync.Mutex
	running          bool
	state            State
	client           session.Client
	generation       uint64
	closedGeneration uint64
	pairingRequested bool
	identity         string
	latestQR         string
	attempts         int
	restarts         int

	closes chan closeEvent
}

func New(opts Options, factory session.Factory, display Display, messages MessageHandler, notifier Notifier) *Lifecycle {
	return &Lifecycle{
		opts:     opts,
		factory:  factory,
		display:  display,
		messages: messages,
		notifier: notifier,
		log:      log.Session("lifecycle"),
		state:    StateConnecting,
		closes:   make(chan closeEvent, 1),
	}
}

// Run starts the first client and keeps replacing it after every close until the
// session is logged out, reconnecting is not allowed, or ctx is cancelled.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	if err := l.start(ctx); err != nil {
		l.terminate()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			l.terminate()
			return ctx.Err()
		case evt := <-l.closes:
			if err := l.decide(evt.update); err != nil {
				l.terminate()
				return err
			}

			l.discard()

			if err := l.wait(ctx); err != nil {
				l.terminate()
				return err
			}

			if err := l.countAttempt(); err != nil {
				l.terminate()
				return err
			}

			l.log.Info("Reconnecting...")
			if err := l.start(ctx); err != nil {
				l.terminate()
				return err
			}
		}
	}
}

func (l *Lifecycle) decide(update session.ConnectionUpdate) error {
	if update.Reason == session.ReasonLoggedOut {
		l.log.Warn("Logged out. Remove the stored session to pair again.")
		return ErrLoggedOut
	}
	if !l.opts.AutoReconnect {
		return ErrReconnectDisabled
	}
	return nil
}

func (l *Lifecycle) wait(ctx context.Context) error {
	if l.opts.ReconnectDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(l.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Lifecycle) countAttempt() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opts.MaxAttempts > 0 && l.attempts >= l.opts.MaxAttempts {
		return fmt.Errorf("%w (%d attempts)", ErrRestartLimit, l.attempts)
	}
	l.attempts++
	l.restarts++
	return nil
}

// start builds a new client generation and connects it.
func (l *Lifecycle) start(ctx context.Context) error {
	client, err := l.factory.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}

	l.mu.Lock()
	l.generation++
	generation := l.generation
	l.client = client
	l.state = StateConnecting
	l.pairingRequested = false
	l.mu.Unlock()

	client.AddEventHandler(func(evt session.Event) {
		l.handle(ctx, generation, evt)
	})

	if err := client.Connect(ctx); err != nil {
		l.log.WithError(err).Warn("Failed to connect")
		l.onClosed(generation, session.ConnectionUpdate{
			Connection: session.StateClosed,
			Reason:     session.ReasonConnectFailure,
			Detail:     err.Error(),
		})
	}
	return nil
}

// discard disconnects the live client. Its handlers are gone before a replacement exists.
func (l *Lifecycle) discard() {
	l.mu.Lock()
	client := l.client
	l.client = nil
	l.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
}

func (l *Lifecycle) terminate() {
	l.discard()
	l.mu.Lock()
	l.state = StateTerminated
	l.latestQR = ""
	l.mu.Unlock()
}

// current returns the live client when generation is still the live one.
func (l *Lifecycle) current(generation uint64) session.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if generation != l.generation || l.client == nil {
		return nil
	}
	return l.client
}

func (l *Lifecycle) handle(ctx context.Context, generation uint64, evt session.Event) {
	client := l.current(generation)
	if client == nil {
		return
	}

	switch e := evt.(type) {
	case session.ConnectionUpdate:
		l.handleConnection(ctx, generation, client, e)
	case session.CredsUpdate:
		if err := client.SaveCredentials(ctx); err != nil {
			l.log.WithError(err).Error("Failed to persist credentials")
		}
	case session.MessagesUpsert:
		if l.messages != nil {
			l.messages.HandleUpsert(ctx, client, e)
		}
	}
}

func (l *Lifecycle) handleConnection(ctx context.Context, generation uint64, client session.Client, update session.ConnectionUpdate) {
	if update.QR != "" {
		l.handleQR(ctx, client, update.QR)
	}

	switch update.Connection {
	case session.StateOpen:
		identity := client.Identity()
		l.mu.Lock()
		l.state = StateOpen
		l.identity = identity
		l.attempts = 0
		l.latestQR = ""
		l.mu.Unlock()

		l.log.Info("Connected as: " + identity)
		l.notify(webhook.EventConnectionOpen, map[string]interface{}{"identity": identity})
	case session.StateClosed:
		l.onClosed(generation, update)
	case session.StateConnecting:
		l.mu.Lock()
		if l.state != StateOpen {
			l.state = StateConnecting
		}
		l.mu.Unlock()
	}
}

func (l *Lifecycle) handleQR(ctx context.Context, client session.Client, code string) {
	l.mu.Lock()
	l.latestQR = code
	requestPairing := l.opts.UsePairingCode && !l.pairingRequested && !client.Registered()
	if requestPairing {
		l.pairingRequested = true
	}
	l.mu.Unlock()

	if l.display != nil {
		l.display.ShowQR(code)
	}

	if !requestPairing {
		return
	}
	pairingCode, err := client.RequestPairingCode(ctx, l.opts.PairingPhone)
	if err != nil {
		l.log.WithError(err).Error("Failed to get pairing code")
		return
	}
	if l.display != nil {
		l.display.ShowPairingCode(pairingCode)
	}
}

// onClosed hands the first close of the live generation to Run.
func (l *Lifecycle) onClosed(generation uint64, update session.ConnectionUpdate) {
	l.mu.Lock()
	if generation != l.generation || l.closedGeneration == generation {
		l.mu.Unlock()
		return
	}
	l.closedGeneration = generation
	l.state = StateClosed
	l.mu.Unlock()

	entry := l.log.WithField("reason", string(update.Reason))
	if update.Detail != "" {
		entry = entry.WithField("detail", update.Detail)
	}
	entry.Warn("Connection closed.")

	eventType := webhook.EventConnectionClosed
	if update.Reason == session.ReasonLoggedOut {
		eventType = webhook.EventConnectionLoggedOut
	}
	l.notify(eventType, map[string]interface{}{"reason": string(update.Reason), "detail": update.Detail})

	select {
	case l.closes <- closeEvent{generation: generation, update: update}:
	default:
		l.log.Warn("Dropping close event, a restart is already pending")
	}
}

func (l *Lifecycle) notify(eventType webhook.EventType, data map[string]interface{}) {
	if l.notifier != nil {
		l.notifier.Notify(eventType, data)
	}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Identity() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity
}

func (l *Lifecycle) MaskedIdentity() string {
	return whatsapp.MaskJID(l.Identity())
}

func (l *Lifecycle) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Restarts counts every restart performed since Run started.
func (l *Lifecycle) Restarts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restarts
}

// LatestQR is the most recent QR payload, empty once paired.
func (l *Lifecycle) LatestQR() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latestQR
}

func (l *Lifecycle) Connected() bool {
	l.mu.Lock()
	client := l.client
	l.mu.Unlock()
	return client != nil && client.IsConnected()
}

func (l *Lifecycle) Registered() bool {
	l.mu.Lock()
	client := l.client
	l.mu.Unlock()
	return client != nil && client.Registered()
}
