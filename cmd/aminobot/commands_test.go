package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joebot/aminobot/internal/bus"
	"github.com/joebot/aminobot/internal/chat"
	"github.com/joebot/aminobot/internal/command"
)

type captureBot struct{ sent []*bus.OutboundMessage }

func (b *captureBot) Prefix() string                   { return "!" }
func (b *captureBot) Publish(msg *bus.OutboundMessage) { b.sent = append(b.sent, msg) }

func newTestRouter(t *testing.T) (*command.Router, *captureBot) {
	t.Helper()
	reg := command.NewRegistry()
	require.NoError(t, reg.Register("roll", roll, command.WithParams(command.OneOf("sides", true, 6, 20, 100))))
	require.NoError(t, reg.Register("say", say, command.WithParams(command.Rest("text", true)), command.WithGuard(memberOnly)))
	require.NoError(t, reg.Register("echo", echo))
	b := &captureBot{}
	return command.NewRouter(reg, b), b
}

func message(content string, community int) *chat.Message {
	return &chat.Message{
		ID:          "m1",
		ThreadID:    "t1",
		CommunityID: community,
		Author:      chat.User{ID: "u1", CommunityID: community},
		Content:     content,
	}
}

func TestRoll(t *testing.T) {
	orig := intN
	intN = func(n int) int { return n - 1 }
	t.Cleanup(func() { intN = orig })

	r, b := newTestRouter(t)

	out, err := r.Route(context.Background(), message("!roll 20", 1))
	require.NoError(t, err)
	assert.Equal(t, command.Invoked, out)
	require.Len(t, b.sent, 1)
	assert.Equal(t, "🎲 20 (d20)", b.sent[0].Content)
	assert.Equal(t, "m1", b.sent[0].ReplyTo)

	out, err = r.Route(context.Background(), message("!roll", 1))
	require.NoError(t, err)
	assert.Equal(t, command.Invoked, out)
	assert.Equal(t, "🎲 6 (d6)", b.sent[1].Content)

	out, err = r.Route(context.Background(), message("!roll 7", 1))
	require.NoError(t, err)
	assert.Equal(t, command.BadArguments, out)
	assert.Len(t, b.sent, 2)
}

func TestSayRequiresMembership(t *testing.T) {
	r, b := newTestRouter(t)

	out, err := r.Route(context.Background(), message(`!say "hello there" friend`, 0))
	require.NoError(t, err)
	assert.Equal(t, command.CheckFailed, out)
	assert.Empty(t, b.sent)

	out, err = r.Route(context.Background(), message(`!say "hello there" friend`, 5))
	require.NoError(t, err)
	assert.Equal(t, command.Invoked, out)
	require.Len(t, b.sent, 1)
	assert.Equal(t, "hello there friend", b.sent[0].Content)
	assert.Empty(t, b.sent[0].ReplyTo)
	assert.Equal(t, 5, b.sent[0].CommunityID)
}

func TestEcho(t *testing.T) {
	r, b := newTestRouter(t)

	_, err := r.Route(context.Background(), message("!echo a 'b c'", 0))
	require.NoError(t, err)
	_, err = r.Route(context.Background(), message("!echo", 0))
	require.NoError(t, err)

	require.Len(t, b.sent, 2)
	assert.Equal(t, "a\nb c", b.sent[0].Content)
	assert.Equal(t, "(nothing to echo)", b.sent[1].Content)
}
