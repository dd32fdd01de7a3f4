package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
)

var ErrDuplicateCommand = errors.New("command already registered")

// Invocation is a prefixed message split into a command name and its arguments.
type Invocation struct {
	Name    string
	Args    []string
	Prefix  string
	Message session.InboundMessage
}

// HandlerFunc produces the reply content for an invocation.
type HandlerFunc func(ctx context.Context, inv Invocation) (session.Content, error)

type Command struct {
	Name string
	// Usage is shown by help after the prefix, e.g. "say <text>".
	Usage string
	Run   HandlerFunc
}

type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return errors.New("command name must not be empty")
	}
	if cmd.Run == nil {
		return fmt.Errorf("command %q has no handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	cmd.Name = name
	if cmd.Usage == "" {
		cmd.Usage = name
	}
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}
