// Package event maps lifecycle and socket event names to user hooks.
package event

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Hook names fired by the runtime.
const (
	Ready          = "ready"
	Message        = "message"
	Notification   = "notification"
	InviteToCall   = "invite-to-call"
	CallStarted    = "call-started"
	StartTyping    = "start-typing"
	EndTyping      = "end-typing"
	StartRecording = "start-recording"
	EndRecording   = "end-recording"
	OnlineMembers  = "online-members"
	LiveLayer      = "livelayer"
)

// Hook handles a fired event. The payload type depends on the event name.
type Hook func(ctx context.Context, payload any) error

// Nop is returned by Lookup for names without a registered hook.
func Nop(context.Context, any) error { return nil }

// Registry is a name to hook table. The first registration for a name wins.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register binds hook to name. A second registration under an existing name
// is rejected and logged; the existing hook is kept.
func (r *Registry) Register(name string, hook Hook) bool {
	if hook == nil {
		slog.Warn("Ignoring nil event hook", "event", name)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hooks[name]; exists {
		slog.Warn("Event hook already registered", "event", name)
		return false
	}
	r.hooks[name] = hook
	slog.Debug("Registered event hook", "event", name)
	return true
}

// Lookup returns the hook registered for name, or Nop.
func (r *Registry) Lookup(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.hooks[name]; ok {
		return h
	}
	return Nop
}

// Fire invokes the hook registered for name.
func (r *Registry) Fire(ctx context.Context, name string, payload any) error {
	return r.Lookup(name)(ctx, payload)
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
