package command

import (
	"context"
	"strings"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
)

const sayFallback = "You forgot to write something."

// Identity is the bot presentation shared by the built-in commands.
type Identity struct {
	BotName     string
	OwnerName   string
	OwnerNumber string
	ImageURL    string
}

// RegisterBuiltins adds ping, help, owner, say and image to the registry.
func RegisterBuiltins(r *Registry, id Identity) error {
	builtins := []Command{
		{Name: "ping", Run: func(context.Context, Invocation) (session.Content, error) {
			return session.Content{Text: "pong"}, nil
		}},
		{Name: "help", Run: func(_ context.Context, inv Invocation) (session.Content, error) {
			return session.Content{Text: helpText(r, id.BotName, inv.Prefix)}, nil
		}},
		{Name: "owner", Run: func(context.Context, Invocation) (session.Content, error) {
			return session.Content{Text: "Owner: *" + id.OwnerName + "*\nwa.me/" + id.OwnerNumber}, nil
		}},
		{Name: "say", Usage: "say <text>", Run: func(_ context.Context, inv Invocation) (session.Content, error) {
			text := strings.Join(inv.Args, " ")
			if text == "" {
				text = sayFallback
			}
			return session.Content{Text: text}, nil
		}},
		{Name: "image", Run: func(context.Context, Invocation) (session.Content, error) {
			return session.Content{ImageURL: id.ImageURL, Caption: id.BotName + ": sample image."}, nil
		}},
	}
	for _, cmd := range builtins {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func helpText(r *Registry, botName string, prefix string) string {
	var b strings.Builder
	b.WriteString("*" + botName + "* Commands:")
	for _, cmd := range r.Commands() {
		if cmd.Name == "help" {
			continue
		}
		b.WriteString("\n• " + prefix + cmd.Usage)
	}
	return b.String()
}
