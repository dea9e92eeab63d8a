// Package command implements prefix commands: a registry of descriptors and
// a router that tokenizes chat messages, checks guards, arity and cooldowns,
// then invokes the handler.
package command

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrCommandExists is returned when a name is registered twice.
var ErrCommandExists = errors.New("command already exists")

// Handler executes a command with its tokenized arguments.
type Handler func(ctx context.Context, c *Context, args []string) error

// Guard decides whether a command may run in the given context.
type Guard func(c *Context) bool

// Always is the default primary guard.
func Always(*Context) bool { return true }

// Descriptor is a registered command.
type Descriptor struct {
	Name        string
	Description string
	Handler     Handler
	Params      []Param
	Guard       Guard
	AnyOf       []Guard
	Cooldown    time.Duration

	mu    sync.Mutex
	calls map[string]time.Time
}

// Signature renders the declared params, e.g. `<user> [reason...]`.
func (d *Descriptor) Signature() string {
	return Signature(d.Params)
}

// Usage renders the full invocation line for help output.
func (d *Descriptor) Usage(prefix string) string {
	if sig := d.Signature(); sig != "" {
		return prefix + d.Name + " " + sig
	}
	return prefix + d.Name
}

func (d *Descriptor) allowed(c *Context) bool {
	if !d.Guard(c) {
		return false
	}
	if len(d.AnyOf) == 0 {
		return true
	}
	for _, g := range d.AnyOf {
		if g(c) {
			return true
		}
	}
	return false
}

// acquire records an invocation for author at now unless the author is still
// cooling down, in which case it returns the remaining wait.
func (d *Descriptor) acquire(author string, now time.Time) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.calls[author]
	if ok && now.Before(last.Add(d.Cooldown)) {
		return last.Add(d.Cooldown).Sub(now), false
	}
	if !ok || now.After(last) {
		d.calls[author] = now
	}
	return 0, true
}

// LastInvocation returns when author last invoked the command.
func (d *Descriptor) LastInvocation(author string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.calls[author]
	return t, ok
}

// Option configures a Descriptor at registration.
type Option func(*Descriptor)

// WithGuard sets the primary guard. It must pass for the command to run.
func WithGuard(g Guard) Option {
	return func(d *Descriptor) { d.Guard = g }
}

// WithAnyOf adds guards of which at least one must pass.
func WithAnyOf(guards ...Guard) Option {
	return func(d *Descriptor) { d.AnyOf = append(d.AnyOf, guards...) }
}

// WithCooldown sets the per-author cooldown.
func WithCooldown(cooldown time.Duration) Option {
	return func(d *Descriptor) { d.Cooldown = cooldown }
}

// WithParams declares the positional arguments. Commands without declared
// params accept any argument list.
func WithParams(params ...Param) Option {
	return func(d *Descriptor) { d.Params = append([]Param{}, params...) }
}

// WithDescription sets a one-line description.
func WithDescription(desc string) Option {
	return func(d *Descriptor) { d.Description = desc }
}

// Registry is a name to command table. The first registration for a name
// wins.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Descriptor
}

type registryOptions struct {
	help     Handler
	helpOpts []Option
}

// RegistryOption customizes NewRegistry.
type RegistryOption func(*registryOptions)

// WithHelp installs handler as the help command in place of the built-in
// one. Only opts apply to it. A nil handler leaves help unregistered.
func WithHelp(handler Handler, opts ...Option) RegistryOption {
	return func(o *registryOptions) {
		o.help = handler
		o.helpOpts = opts
	}
}

// NewRegistry creates a registry that already contains the help command.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{commands: make(map[string]*Descriptor)}

	o := &registryOptions{
		help: r.help,
		helpOpts: []Option{
			WithParams(Optional("command")),
			WithDescription("List commands or show how to call one"),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.help != nil {
		r.Register("help", o.help, o.helpOpts...)
	}
	return r
}

// Register adds a command. Registering an existing name logs and returns
// ErrCommandExists; the existing command is kept.
func (r *Registry) Register(name string, handler Handler, opts ...Option) error {
	d := &Descriptor{
		Name:    name,
		Handler: handler,
		Guard:   Always,
		calls:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.Guard == nil {
		d.Guard = Always
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		slog.Warn("Command already registered", "command", name)
		return ErrCommandExists
	}
	r.commands[name] = d
	slog.Debug("Registered command", "command", name, "signature", d.Signature())
	return nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.commands[name]
	return d, ok
}

// Names returns all command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) help(_ context.Context, c *Context, args []string) error {
	prefix := c.Bot.Prefix()
	if len(args) == 0 {
		names := r.Names()
		lines := make([]string, len(names))
		for i, name := range names {
			lines[i] = prefix + name
		}
		c.Send(strings.Join(lines, "\n"))
		return nil
	}

	d, ok := r.Lookup(args[0])
	if !ok {
		slog.Info("Command not found", "command", args[0], "author", c.Author.ID)
		return nil
	}
	c.Send(d.Usage(prefix))
	return nil
}
