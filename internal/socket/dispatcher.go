package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/mo"

	"github.com/joebot/aminobot/internal/chat"
	"github.com/joebot/aminobot/internal/event"
)

// Sender writes a control frame to the socket.
type Sender interface {
	Send(ctx context.Context, code int, obj map[string]any) error
}

// Hooks fires named event hooks.
type Hooks interface {
	Fire(ctx context.Context, name string, payload any) error
}

// CommandRouter handles prefixed messages.
type CommandRouter interface {
	Dispatch(ctx context.Context, msg *chat.Message) error
}

var notificationHooks = map[int]string{
	NotifInviteVoiceChat: event.InviteToCall,
	NotifStartVoiceChat:  event.CallStarted,
}

var topicHooks = map[string]string{
	TopicStartTyping:    event.StartTyping,
	TopicEndTyping:      event.EndTyping,
	TopicStartRecording: event.StartRecording,
	TopicEndRecording:   event.EndRecording,
	TopicOnlineMembers:  event.OnlineMembers,
}

// Dispatcher routes inbound frames. It must be driven by a single goroutine
// so that acknowledgments go out in arrival order.
type Dispatcher struct {
	sender Sender
	hooks  Hooks
	router CommandRouter
	prefix string

	mu     sync.RWMutex
	selfID string
}

// NewDispatcher creates a dispatcher. Messages starting with prefix go to
// router, all others fire hooks.
func NewDispatcher(sender Sender, hooks Hooks, router CommandRouter, prefix string) *Dispatcher {
	return &Dispatcher{sender: sender, hooks: hooks, router: router, prefix: prefix}
}

// SetSelfID sets the bot's own profile id. Prefixed messages from it are
// never routed.
func (d *Dispatcher) SetSelfID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selfID = id
}

func (d *Dispatcher) self() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selfID
}

// OnReady fires the ready hook.
func (d *Dispatcher) OnReady(ctx context.Context) error {
	return d.hooks.Fire(ctx, event.Ready, nil)
}

// OnFrame routes one frame. Undecodable frames and unknown type codes are
// logged and dropped; errors from hooks and command handlers are returned.
func (d *Dispatcher) OnFrame(ctx context.Context, f Frame) error {
	switch f.Type {
	case TypeMessage:
		return d.onMessage(ctx, f.Payload)
	case TypeNotification:
		return d.onNotification(ctx, f.Payload)
	case TypeLiveLayerEvent:
		return d.onLiveLayer(ctx, f.Payload)
	default:
		slog.Info("Unhandled frame", "type", f.Type, "payload", string(f.Payload))
		return nil
	}
}

func (d *Dispatcher) onMessage(ctx context.Context, payload json.RawMessage) error {
	msg, err := chat.DecodeMessage(payload)
	if err != nil {
		slog.Warn("Dropping message frame", "err", err, "payload", string(payload))
		return nil
	}

	handleErr := d.handleMessage(ctx, msg)

	ack := map[string]any{
		"ndcId":       msg.CommunityID,
		"threadId":    msg.ThreadID,
		"messageId":   msg.ID,
		"markHasRead": true,
		"createdTime": msg.RawCreatedTime,
	}
	if err := d.sender.Send(ctx, TypeMessageAck, ack); err != nil {
		slog.Warn("Message ack failed", "message", msg.ID, "thread", msg.ThreadID, "err", err)
	}
	return handleErr
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *chat.Message) error {
	if !strings.HasPrefix(msg.Content, d.prefix) {
		return d.hooks.Fire(ctx, event.Message, msg)
	}
	if self := d.self(); self != "" && msg.Author.ID == self {
		slog.Debug("Ignoring own command", "message", msg.ID)
		return nil
	}
	return d.router.Dispatch(ctx, msg)
}

func (d *Dispatcher) onNotification(ctx context.Context, payload json.RawMessage) error {
	n, err := chat.DecodeNotification(payload)
	if err != nil {
		slog.Warn("Dropping notification frame", "err", err, "payload", string(payload))
		return nil
	}
	name, ok := notificationHooks[n.Type]
	if !ok {
		name = event.Notification
	}
	return d.hooks.Fire(ctx, name, n)
}

func (d *Dispatcher) onLiveLayer(ctx context.Context, payload json.RawMessage) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		slog.Warn("Dropping live-layer frame", "err", err, "payload", string(payload))
		return nil
	}

	ev := &chat.LiveEvent{Payload: body}
	raw, _ := body["topic"].(string)
	topic, err := ParseTopic(raw)
	if err != nil {
		slog.Debug("Live-layer frame without a usable topic", "topic", raw)
		return d.hooks.Fire(ctx, event.LiveLayer, ev)
	}
	ev.Scope, ev.Topic, ev.Extras = topic.Scope, topic.Name, topic.Extras

	name, ok := topicHooks[topic.Name]
	if !ok {
		name = event.LiveLayer
	}
	return d.hooks.Fire(ctx, name, ev)
}

// Subscribe asks the server to start pushing live-layer events for topic.
func (d *Dispatcher) Subscribe(ctx context.Context, topic string, community mo.Option[int]) error {
	return d.sendTopic(ctx, TypeSubscribeLive, topic, community)
}

// Unsubscribe stops a live-layer subscription.
func (d *Dispatcher) Unsubscribe(ctx context.Context, topic string, community mo.Option[int]) error {
	return d.sendTopic(ctx, TypeUnsubscribeLive, topic, community)
}

func (d *Dispatcher) sendTopic(ctx context.Context, code int, topic string, community mo.Option[int]) error {
	obj := map[string]any{
		"topic": TopicString(topic, community),
		"ndcId": community.OrElse(0),
	}
	if err := d.sender.Send(ctx, code, obj); err != nil {
		return fmt.Errorf("send topic %s: %w", topic, err)
	}
	return nil
}
