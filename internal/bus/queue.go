package bus

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/gammazero/workerpool"
)

// MaxContentLength is the longest message content the service accepts.
const MaxContentLength = 2000

const failureNotice = "Sorry, I couldn't deliver my response. Please try again."

// OutboundHandler delivers an outbound message, typically via the REST API.
type OutboundHandler func(ctx context.Context, msg *OutboundMessage) error

// MessageBus decouples command handlers from message delivery. Messages are
// delivered one at a time, in publish order, off the frame loop.
type MessageBus struct {
	mu          sync.RWMutex
	subscribers []OutboundHandler
	stopped     bool

	ctx  context.Context
	pool *workerpool.WorkerPool
}

// NewMessageBus creates a bus with a single delivery worker.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		ctx:  context.Background(),
		pool: workerpool.New(1),
	}
}

// Subscribe registers a handler for outbound messages.
func (b *MessageBus) Subscribe(handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
}

// PublishOutbound queues msg for delivery. Messages published after Stop are
// dropped.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		slog.Warn("Bus stopped, dropping outbound message", "thread", msg.ThreadID)
		return
	}
	b.pool.Submit(func() { b.deliver(msg) })
}

// Stop waits for queued messages to be delivered and rejects new ones.
func (b *MessageBus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()
	b.pool.StopWait()
}

func (b *MessageBus) deliver(msg *OutboundMessage) {
	b.mu.RLock()
	handlers := append([]OutboundHandler(nil), b.subscribers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		slog.Debug("No outbound handler, dropping message", "thread", msg.ThreadID)
		return
	}
	for _, h := range handlers {
		if err := h(b.ctx, msg); err != nil {
			slog.Warn("Outbound delivery failed, attempting recovery", "thread", msg.ThreadID, "err", err)
			b.recoverSend(h, msg)
		}
	}
}

// recoverSend retries with progressively simpler messages, ending with a short
// failure notice so the thread knows something went wrong.
func (b *MessageBus) recoverSend(h OutboundHandler, original *OutboundMessage) {
	if utf8.RuneCountInString(original.Content) > MaxContentLength {
		truncated := *original
		truncated.Content = Truncate(original.Content, MaxContentLength)
		if err := h(b.ctx, &truncated); err == nil {
			slog.Info("Recovery: sent truncated message", "thread", original.ThreadID)
			return
		}
	}

	fallback := *original
	fallback.Content = failureNotice
	if err := h(b.ctx, &fallback); err != nil {
		slog.Error("Recovery: all strategies failed", "thread", original.ThreadID, "err", err)
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
