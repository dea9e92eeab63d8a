// Package bot wires the registries, router, dispatcher, connection manager
// and outbound bus into a single bot instance.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/joebot/aminobot/internal/bus"
	"github.com/joebot/aminobot/internal/chat"
	"github.com/joebot/aminobot/internal/command"
	"github.com/joebot/aminobot/internal/config"
	"github.com/joebot/aminobot/internal/event"
	"github.com/joebot/aminobot/internal/session"
	"github.com/joebot/aminobot/internal/signing"
	"github.com/joebot/aminobot/internal/socket"
)

// Bot is one bot identity on one connection.
type Bot struct {
	prefix      string
	selfID      string
	stopOnError bool

	events     *event.Registry
	commands   *command.Registry
	router     *command.Router
	dispatcher *socket.Dispatcher
	manager    *socket.Manager
	bus        *bus.MessageBus
}

type options struct {
	dialer       socket.Dialer
	deliverers   []bus.OutboundHandler
	routerOpts   []command.RouterOption
	registryOpts []command.RegistryOption
}

// Option customizes New.
type Option func(*options)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d socket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithDeliverer registers the handler that posts outbound messages, usually a
// REST client.
func WithDeliverer(h bus.OutboundHandler) Option {
	return func(o *options) { o.deliverers = append(o.deliverers, h) }
}

// WithRouterOptions passes options to the command router.
func WithRouterOptions(opts ...command.RouterOption) Option {
	return func(o *options) { o.routerOpts = append(o.routerOpts, opts...) }
}

// WithHelpCommand replaces the built-in help command with handler.
func WithHelpCommand(handler command.Handler, opts ...command.Option) Option {
	return func(o *options) {
		o.registryOpts = append(o.registryOpts, command.WithHelp(handler, opts...))
	}
}

// New creates a bot from cfg. The session token, when set, supplies the auth
// header and, unless configured, the bot's own profile id.
func New(cfg *config.Config, opts ...Option) (*Bot, error) {
	o := &options{dialer: socket.NewWSDialer()}
	for _, opt := range opts {
		opt(o)
	}

	version, err := signing.ParseVersion(cfg.Auth.SignatureVersion)
	if err != nil {
		return nil, err
	}
	signer, err := signing.NewHMACSigner(cfg.Auth.Key, version)
	if err != nil {
		return nil, err
	}

	var sid string
	selfID := cfg.Bot.SelfProfileID
	if cfg.Auth.Session != "" {
		sess, err := session.Parse(cfg.Auth.Session)
		if err != nil {
			return nil, fmt.Errorf("parse session: %w", err)
		}
		sid = sess.SID()
		if selfID == "" {
			selfID = sess.UserID
		}
	}

	b := &Bot{
		prefix:      cfg.Bot.Prefix,
		selfID:      selfID,
		stopOnError: cfg.Bot.HandlerErrors == config.HandlerErrorsStop,
		events:      event.NewRegistry(),
		commands:    command.NewRegistry(o.registryOpts...),
		bus:         bus.NewMessageBus(),
	}
	for _, h := range o.deliverers {
		b.bus.Subscribe(h)
	}

	routerOpts := o.routerOpts
	if notice := cfg.Bot.CooldownNotice; notice != "" {
		routerOpts = append([]command.RouterOption{command.WithCooldownNotice(func(c *command.Context, _ time.Duration) {
			c.Reply(notice)
		})}, routerOpts...)
	}
	b.router = command.NewRouter(b.commands, b, routerOpts...)

	b.manager = socket.NewManager(socket.Config{
		URL:               cfg.Socket.URL,
		DeviceID:          cfg.Auth.DeviceID,
		SID:               sid,
		UserAgent:         cfg.Socket.UserAgent,
		Signer:            signer,
		Dialer:            o.dialer,
		ReconnectInterval: time.Duration(cfg.Socket.ReconnectIntervalSeconds) * time.Second,
		RetryBackoff:      time.Duration(cfg.Socket.RetryBackoffMs) * time.Millisecond,
	})
	b.dispatcher = socket.NewDispatcher(b.manager, b.events, b.router, b.prefix)
	b.dispatcher.SetSelfID(selfID)

	return b, nil
}

// Prefix returns the command prefix.
func (b *Bot) Prefix() string { return b.prefix }

// SelfID returns the bot's own profile id.
func (b *Bot) SelfID() string { return b.selfID }

// Publish queues an outbound message.
func (b *Bot) Publish(msg *bus.OutboundMessage) { b.bus.PublishOutbound(msg) }

// Commands returns the command registry.
func (b *Bot) Commands() *command.Registry { return b.commands }

// Events returns the event registry.
func (b *Bot) Events() *event.Registry { return b.events }

// State returns the connection state.
func (b *Bot) State() socket.State { return b.manager.State() }

// Command registers a prefix command. A duplicate name returns
// command.ErrCommandExists and keeps the first registration.
func (b *Bot) Command(name string, handler command.Handler, opts ...command.Option) error {
	return b.commands.Register(name, handler, opts...)
}

// Event registers a hook under name. It reports false for duplicates.
func (b *Bot) Event(name string, hook event.Hook) bool {
	return b.events.Register(name, hook)
}

// OnReady registers the hook fired once the first connection is open.
func (b *Bot) OnReady(fn func(ctx context.Context) error) bool {
	return b.Event(event.Ready, func(ctx context.Context, _ any) error { return fn(ctx) })
}

// OnMessage registers the hook for messages that are not commands.
func (b *Bot) OnMessage(fn func(ctx context.Context, msg *chat.Message) error) bool {
	return b.Event(event.Message, func(ctx context.Context, payload any) error {
		return fn(ctx, payload.(*chat.Message))
	})
}

// OnNotification registers a notification hook: event.Notification,
// event.InviteToCall or event.CallStarted.
func (b *Bot) OnNotification(name string, fn func(ctx context.Context, n *chat.Notification) error) bool {
	return b.Event(name, func(ctx context.Context, payload any) error {
		return fn(ctx, payload.(*chat.Notification))
	})
}

// OnLive registers a live-layer hook such as event.StartTyping or
// event.LiveLayer.
func (b *Bot) OnLive(name string, fn func(ctx context.Context, ev *chat.LiveEvent) error) bool {
	return b.Event(name, func(ctx context.Context, payload any) error {
		return fn(ctx, payload.(*chat.LiveEvent))
	})
}

// Subscribe starts a live-layer subscription, globally or for a community.
func (b *Bot) Subscribe(ctx context.Context, topic string, community mo.Option[int]) error {
	return b.dispatcher.Subscribe(ctx, topic, community)
}

// Unsubscribe stops a live-layer subscription.
func (b *Bot) Unsubscribe(ctx context.Context, topic string, community mo.Option[int]) error {
	return b.dispatcher.Unsubscribe(ctx, topic, community)
}

// Run connects and processes frames until ctx is cancelled, or until a hook
// or command fails under the "stop" policy. Queued outbound messages are
// delivered before Run returns. A Bot runs once.
func (b *Bot) Run(ctx context.Context) error {
	defer b.bus.Stop()
	slog.Info("Bot starting", "prefix", b.prefix, "self", b.selfID, "commands", len(b.commands.Names()))
	err := b.manager.Run(ctx, loop{b})
	slog.Info("Bot stopped")
	return err
}

// loop applies the handler error policy between the manager and the
// dispatcher.
type loop struct{ b *Bot }

func (l loop) OnReady(ctx context.Context) error {
	return l.b.handleError(l.b.dispatcher.OnReady(ctx))
}

func (l loop) OnFrame(ctx context.Context, f socket.Frame) error {
	return l.b.handleError(l.b.dispatcher.OnFrame(ctx, f))
}

func (b *Bot) handleError(err error) error {
	if err == nil {
		return nil
	}
	if b.stopOnError {
		slog.Error("Handler failed, stopping", "err", err)
		return err
	}
	slog.Error("Handler failed", "err", err)
	return nil
}
