package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/joebot/aminobot/internal/bot"
	"github.com/joebot/aminobot/internal/command"
)

// intN is swapped in tests.
var intN = rand.IntN

func registerCommands(b *bot.Bot) error {
	if err := b.Command("roll", roll,
		command.WithDescription("Roll a die"),
		command.WithParams(command.OneOf("sides", true, 6, 20, 100)),
		command.WithCooldown(3*time.Second),
	); err != nil {
		return err
	}
	if err := b.Command("say", say,
		command.WithDescription("Repeat text in the thread"),
		command.WithParams(command.Rest("text", true)),
		command.WithGuard(memberOnly),
	); err != nil {
		return err
	}
	return b.Command("echo", echo,
		command.WithDescription("Reply with the arguments, one per line"),
	)
}

// memberOnly rejects authors outside a community.
func memberOnly(c *command.Context) bool { return c.Author.IsMember() }

func roll(_ context.Context, c *command.Context, args []string) error {
	sides := 6
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		sides = n
	}
	c.Reply(fmt.Sprintf("🎲 %d (d%d)", intN(sides)+1, sides))
	return nil
}

func say(_ context.Context, c *command.Context, args []string) error {
	c.Send(strings.Join(args, " "))
	return nil
}

func echo(_ context.Context, c *command.Context, args []string) error {
	if len(args) == 0 {
		c.Reply("(nothing to echo)")
		return nil
	}
	c.Reply(strings.Join(args, "\n"))
	return nil
}
