package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/joebot/aminobot/internal/chat"
)

// Outcome reports how the router handled a message.
type Outcome int

const (
	// Ignored means the message was not a command, or was empty or malformed.
	Ignored Outcome = iota
	NotFound
	CheckFailed
	BadArguments
	CoolingDown
	Invoked
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case NotFound:
		return "not-found"
	case CheckFailed:
		return "check-failed"
	case BadArguments:
		return "bad-arguments"
	case CoolingDown:
		return "cooling-down"
	case Invoked:
		return "invoked"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CooldownFunc is called when an invocation is dropped because the author is
// still cooling down.
type CooldownFunc func(c *Context, remaining time.Duration)

// Router turns prefixed chat messages into command invocations.
type Router struct {
	registry   *Registry
	bot        Bot
	now        func() time.Time
	onCooldown CooldownFunc
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClock overrides the time source used for cooldowns.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// WithCooldownNotice sets a callback for dropped invocations. Without one,
// they are dropped silently.
func WithCooldownNotice(fn CooldownFunc) RouterOption {
	return func(r *Router) { r.onCooldown = fn }
}

// NewRouter creates a router over registry.
func NewRouter(registry *Registry, bot Bot, opts ...RouterOption) *Router {
	r := &Router{registry: registry, bot: bot, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the router dispatches into.
func (r *Router) Registry() *Registry { return r.registry }

// Dispatch routes msg and returns only the handler error, if any.
func (r *Router) Dispatch(ctx context.Context, msg *chat.Message) error {
	_, err := r.Route(ctx, msg)
	return err
}

// Route routes msg to its command. Gating rejections are reported as an
// Outcome and logged; only a handler failure produces an error.
func (r *Router) Route(ctx context.Context, msg *chat.Message) (Outcome, error) {
	prefix := r.bot.Prefix()
	if !strings.HasPrefix(msg.Content, prefix) {
		return Ignored, nil
	}

	tokens, err := shellquote.Split(strings.TrimPrefix(msg.Content, prefix))
	if err != nil {
		slog.Info("Malformed command", "author", msg.Author.ID, "thread", msg.ThreadID, "err", err)
		return Ignored, nil
	}
	if len(tokens) == 0 {
		return Ignored, nil
	}
	name, args := tokens[0], tokens[1:]

	d, ok := r.registry.Lookup(name)
	if !ok {
		slog.Info("Command not found", "command", name, "author", msg.Author.ID)
		return NotFound, nil
	}

	c := newContext(r.bot, msg)
	c.Command = d

	if !d.allowed(c) {
		slog.Info("Command check failed", "command", name, "author", msg.Author.ID)
		return CheckFailed, nil
	}

	if err := checkArgs(d.Params, args); err != nil {
		slog.Info("Bad command arguments", "command", name, "author", msg.Author.ID,
			"usage", d.Usage(prefix), "err", err)
		return BadArguments, nil
	}

	if remaining, ok := d.acquire(msg.Author.ID, r.now()); !ok {
		slog.Debug("Command cooling down", "command", name, "author", msg.Author.ID, "remaining", remaining)
		if r.onCooldown != nil {
			r.onCooldown(c, remaining)
		}
		return CoolingDown, nil
	}

	slog.Debug("Invoking command", "command", name, "author", msg.Author.ID, "args", len(args))
	if err := d.Handler(ctx, c, args); err != nil {
		return Invoked, fmt.Errorf("command %s: %w", name, err)
	}
	return Invoked, nil
}
