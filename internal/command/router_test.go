package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joebot/aminobot/internal/bus"
	"github.com/joebot/aminobot/internal/chat"
)

type fakeBot struct {
	mu     sync.Mutex
	prefix string
	sent   []*bus.OutboundMessage
}

func (b *fakeBot) Prefix() string { return b.prefix }

func (b *fakeBot) Publish(msg *bus.OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func message(author, content string) *chat.Message {
	return &chat.Message{
		ID:       "m-" + content,
		ThreadID: "thread",
		Author:   chat.User{ID: author},
		Content:  content,
	}
}

func setup(t *testing.T, opts ...RouterOption) (*Registry, *Router, *fakeBot) {
	t.Helper()
	bot := &fakeBot{prefix: "!"}
	reg := NewRegistry()
	return reg, NewRouter(reg, bot, opts...), bot
}

func TestRouteTokenizesShellStyle(t *testing.T) {
	reg, router, _ := setup(t)
	var got []string
	require.NoError(t, reg.Register("say", func(_ context.Context, _ *Context, args []string) error {
		got = args
		return nil
	}))

	outcome, err := router.Route(context.Background(), message("u1", `!say "hello world" again`))
	require.NoError(t, err)
	assert.Equal(t, Invoked, outcome)
	assert.Equal(t, []string{"hello world", "again"}, got)
}

func TestRouteIgnoresNonCommands(t *testing.T) {
	_, router, _ := setup(t)
	for _, content := range []string{"hello", "", "!", `!say "unterminated`} {
		outcome, err := router.Route(context.Background(), message("u1", content))
		assert.NoError(t, err)
		assert.Equal(t, Ignored, outcome, content)
	}
}

func TestRouteUnknownCommand(t *testing.T) {
	_, router, _ := setup(t)
	outcome, err := router.Route(context.Background(), message("u1", "!nope"))
	assert.NoError(t, err)
	assert.Equal(t, NotFound, outcome)
}

func TestDuplicateRegistrationFirstWins(t *testing.T) {
	reg, router, _ := setup(t)
	var called string
	require.NoError(t, reg.Register("x", func(context.Context, *Context, []string) error {
		called = "first"
		return nil
	}))
	err := reg.Register("x", func(context.Context, *Context, []string) error {
		called = "second"
		return nil
	})
	assert.ErrorIs(t, err, ErrCommandExists)

	require.NoError(t, router.Dispatch(context.Background(), message("u1", "!x")))
	assert.Equal(t, "first", called)
}

func TestGuards(t *testing.T) {
	deny := func(*Context) bool { return false }
	allow := func(*Context) bool { return true }

	tests := []struct {
		name string
		opts []Option
		want Outcome
	}{
		{"no guards", nil, Invoked},
		{"primary fails", []Option{WithGuard(deny)}, CheckFailed},
		{"any-of all fail", []Option{WithAnyOf(deny, deny)}, CheckFailed},
		{"any-of one passes", []Option{WithAnyOf(deny, allow)}, Invoked},
		{"primary fails any-of passes", []Option{WithGuard(deny), WithAnyOf(allow)}, CheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, router, _ := setup(t)
			calls := 0
			require.NoError(t, reg.Register("g", func(context.Context, *Context, []string) error {
				calls++
				return nil
			}, tt.opts...))

			outcome, err := router.Route(context.Background(), message("u1", "!g"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
			if tt.want == Invoked {
				assert.Equal(t, 1, calls)
			} else {
				assert.Zero(t, calls)
			}
		})
	}
}

func TestGuardSeesContext(t *testing.T) {
	reg, router, _ := setup(t)
	onlyAlice := func(c *Context) bool { return c.Author.ID == "alice" }
	require.NoError(t, reg.Register("admin", func(context.Context, *Context, []string) error { return nil },
		WithGuard(onlyAlice)))

	outcome, _ := router.Route(context.Background(), message("alice", "!admin"))
	assert.Equal(t, Invoked, outcome)
	outcome, _ = router.Route(context.Background(), message("bob", "!admin"))
	assert.Equal(t, CheckFailed, outcome)
}

func TestCooldown(t *testing.T) {
	clock := newClock()
	reg, router, _ := setup(t, WithClock(clock.now))
	calls := 0
	require.NoError(t, reg.Register("c", func(context.Context, *Context, []string) error {
		calls++
		return nil
	}, WithCooldown(5*time.Second)))

	ctx := context.Background()
	outcome, _ := router.Route(ctx, message("u1", "!c"))
	assert.Equal(t, Invoked, outcome)

	clock.advance(3 * time.Second)
	outcome, _ = router.Route(ctx, message("u1", "!c"))
	assert.Equal(t, CoolingDown, outcome)

	// Other authors are independent.
	outcome, _ = router.Route(ctx, message("u2", "!c"))
	assert.Equal(t, Invoked, outcome)

	clock.advance(2 * time.Second)
	outcome, _ = router.Route(ctx, message("u1", "!c"))
	assert.Equal(t, Invoked, outcome)

	assert.Equal(t, 3, calls)
	d, _ := reg.Lookup("c")
	last, ok := d.LastInvocation("u1")
	require.True(t, ok)
	assert.Equal(t, clock.now(), last)
}

func TestCooldownDropDoesNotResetTimer(t *testing.T) {
	clock := newClock()
	reg, router, _ := setup(t, WithClock(clock.now))
	require.NoError(t, reg.Register("c", func(context.Context, *Context, []string) error { return nil },
		WithCooldown(5*time.Second)))

	ctx := context.Background()
	start := clock.now()
	router.Route(ctx, message("u1", "!c"))
	clock.advance(4 * time.Second)
	router.Route(ctx, message("u1", "!c"))

	d, _ := reg.Lookup("c")
	last, _ := d.LastInvocation("u1")
	assert.Equal(t, start, last)
}

func TestZeroCooldownNeverBlocks(t *testing.T) {
	clock := newClock()
	reg, router, _ := setup(t, WithClock(clock.now))
	calls := 0
	require.NoError(t, reg.Register("z", func(context.Context, *Context, []string) error {
		calls++
		return nil
	}))
	for i := 0; i < 3; i++ {
		router.Route(context.Background(), message("u1", "!z"))
	}
	assert.Equal(t, 3, calls)
}

func TestCooldownNotice(t *testing.T) {
	clock := newClock()
	var remaining time.Duration
	reg, router, _ := setup(t, WithClock(clock.now), WithCooldownNotice(func(_ *Context, r time.Duration) {
		remaining = r
	}))
	require.NoError(t, reg.Register("c", func(context.Context, *Context, []string) error { return nil },
		WithCooldown(5*time.Second)))

	router.Route(context.Background(), message("u1", "!c"))
	clock.advance(time.Second)
	router.Route(context.Background(), message("u1", "!c"))
	assert.Equal(t, 4*time.Second, remaining)
}

func TestCheckFailureDoesNotStartCooldown(t *testing.T) {
	clock := newClock()
	reg, router, _ := setup(t, WithClock(clock.now))
	allowed := false
	require.NoError(t, reg.Register("c", func(context.Context, *Context, []string) error { return nil },
		WithCooldown(time.Minute), WithGuard(func(*Context) bool { return allowed })))

	router.Route(context.Background(), message("u1", "!c"))
	allowed = true
	outcome, _ := router.Route(context.Background(), message("u1", "!c"))
	assert.Equal(t, Invoked, outcome)
}

func TestArity(t *testing.T) {
	reg, router, _ := setup(t)
	handler := func(context.Context, *Context, []string) error { return nil }
	require.NoError(t, reg.Register("ban", handler, WithParams(Required("user"), Rest("reason", false))))
	require.NoError(t, reg.Register("mode", handler, WithParams(OneOf("mode", false, "on", "off"))))
	require.NoError(t, reg.Register("ping", handler, WithParams()))

	tests := []struct {
		content string
		want    Outcome
	}{
		{"!ban", BadArguments},
		{"!ban bob", Invoked},
		{"!ban bob being rude", Invoked},
		{"!mode on", Invoked},
		{"!mode maybe", BadArguments},
		{"!mode on off", BadArguments},
		{"!ping", Invoked},
		{"!ping extra", BadArguments},
	}
	for _, tt := range tests {
		outcome, err := router.Route(context.Background(), message("u1", tt.content))
		require.NoError(t, err)
		assert.Equal(t, tt.want, outcome, tt.content)
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	reg, router, _ := setup(t)
	boom := errors.New("boom")
	require.NoError(t, reg.Register("fail", func(context.Context, *Context, []string) error { return boom }))

	outcome, err := router.Route(context.Background(), message("u1", "!fail"))
	assert.Equal(t, Invoked, outcome)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "command fail")
}

func TestHelpCommand(t *testing.T) {
	reg, router, bot := setup(t)
	require.NoError(t, reg.Register("roll", func(context.Context, *Context, []string) error { return nil },
		WithParams(Optional("sides"))))

	require.NoError(t, router.Dispatch(context.Background(), message("u1", "!help")))
	require.NoError(t, router.Dispatch(context.Background(), message("u1", "!help roll")))
	require.NoError(t, router.Dispatch(context.Background(), message("u1", "!help missing")))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, "!help\n!roll", bot.sent[0].Content)
	assert.Equal(t, "!roll [sides]", bot.sent[1].Content)
	assert.Equal(t, "thread", bot.sent[1].ThreadID)
}

func TestContextReply(t *testing.T) {
	reg, router, bot := setup(t)
	require.NoError(t, reg.Register("echo", func(_ context.Context, c *Context, args []string) error {
		c.Reply(args[0])
		return nil
	}, WithParams(Required("text"))))

	msg := message("u1", "!echo hi")
	msg.CommunityID = 9
	require.NoError(t, router.Dispatch(context.Background(), msg))

	require.Len(t, bot.sent, 1)
	assert.Equal(t, &bus.OutboundMessage{ThreadID: "thread", CommunityID: 9, Content: "hi", ReplyTo: msg.ID}, bot.sent[0])
}

func TestRegistryWithCustomHelp(t *testing.T) {
	bot := &fakeBot{prefix: "!"}
	var gotArgs []string
	reg := NewRegistry(WithHelp(func(_ context.Context, c *Context, args []string) error {
		gotArgs = args
		c.Send("custom")
		return nil
	}, WithParams(Rest("topic", false))))
	router := NewRouter(reg, bot)

	outcome, err := router.Route(context.Background(), message("u1", "!help a b"))
	require.NoError(t, err)
	assert.Equal(t, Invoked, outcome)
	assert.Equal(t, []string{"a", "b"}, gotArgs)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "custom", bot.sent[0].Content)

	d, ok := reg.Lookup("help")
	require.True(t, ok)
	assert.Equal(t, "!help [topic...]", d.Usage("!"))
}

func TestRegistryWithoutHelp(t *testing.T) {
	reg := NewRegistry(WithHelp(nil))
	assert.Empty(t, reg.Names())

	noop := func(context.Context, *Context, []string) error { return nil }
	require.NoError(t, reg.Register("help", noop))
	assert.Equal(t, []string{"help"}, reg.Names())
}
