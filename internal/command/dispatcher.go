package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-command-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-command-bot/pkg/log"
)

// Notifier receives bot events for outbound delivery (webhooks).
type Notifier interface {
	Notify(eventType webhook.EventType, data map[string]interface{})
}

type Options struct {
	Prefix   string
	AutoRead bool
	// RatePerMinute caps commands per chat, 0 disables the limit.
	RatePerMinute int
	Notifier      Notifier
}

type Dispatcher struct {
	registry *Registry
	prefix   string
	autoRead bool
	limiter  *chatLimiter
	notifier Notifier
	log      *logrus.Entry
}

func NewDispatcher(registry *Registry, opts Options) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		prefix:   opts.Prefix,
		autoRead: opts.AutoRead,
		notifier: opts.Notifier,
		log:      log.Session("dispatcher"),
	}
	if opts.RatePerMinute > 0 {
		d.limiter = newChatLimiter(opts.RatePerMinute)
	}
	return d
}

// Parse splits a prefixed text into a lower-cased command name and its arguments.
// ok is false when text does not start with prefix.
func Parse(prefix string, text string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(text[len(prefix):])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// HandleUpsert processes a batch of live messages in order. History replays are ignored.
func (d *Dispatcher) HandleUpsert(ctx context.Context, client session.Sender, batch session.MessagesUpsert) {
	if batch.Type != session.UpsertNotify {
		return
	}
	for _, msg := range batch.Messages {
		d.handleMessage(ctx, client, msg)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, client session.Sender, msg session.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.WithField("message_id", msg.Key.ID).Error(fmt.Sprintf("panic while handling message: %v", rec))
		}
	}()

	if err := d.process(ctx, client, msg); err != nil {
		d.log.WithField("message_id", msg.Key.ID).
			WithField("chat", msg.Key.Chat.String()).
			WithError(err).
			Error("Failed to handle message")
	}
}

func (d *Dispatcher) process(ctx context.Context, client session.Sender, msg session.InboundMessage) error {
	if msg.Message == nil {
		return nil
	}

	name, args, ok := Parse(d.prefix, msg.Text())
	if !ok {
		return nil
	}

	if d.autoRead {
		_ = client.ReadMessages(ctx, []session.MessageKey{msg.Key})
	}

	if d.limiter != nil && !d.limiter.Allow(msg.Key.Chat.String()) {
		d.log.WithField("chat", msg.Key.Chat.String()).WithField("command", name).Debug("Command rate limited")
		return nil
	}

	inv := Invocation{Name: name, Args: args, Prefix: d.prefix, Message: msg}
	content, err := d.resolve(ctx, inv)
	if err != nil {
		return fmt.Errorf("command %q: %w", name, err)
	}

	if _, err := client.SendMessage(ctx, msg.Key.Chat, content, session.SendOptions{Quoted: &msg}); err != nil {
		return fmt.Errorf("send reply for %q: %w", name, err)
	}

	d.log.WithField("command", name).WithField("chat", msg.Key.Chat.String()).Info("Command handled")
	if d.notifier != nil {
		d.notifier.Notify(webhook.EventCommandExecuted, map[string]interface{}{
			"command":    name,
			"chat":       msg.Key.Chat.String(),
			"sender":     msg.Key.Sender.String(),
			"message_id": msg.Key.ID,
			"is_from_me": msg.Key.FromMe,
		})
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, inv Invocation) (session.Content, error) {
	cmd, ok := d.registry.Lookup(inv.Name)
	if !ok {
		return session.Content{Text: "Unknown command: " + inv.Prefix + inv.Name}, nil
	}
	return cmd.Run(ctx, inv)
}
