package command

import (
	"github.com/joebot/aminobot/internal/bus"
	"github.com/joebot/aminobot/internal/chat"
)

// Bot is the part of the bot a command sees.
type Bot interface {
	Prefix() string
	Publish(msg *bus.OutboundMessage)
}

// Context is handed to guards and handlers for one command invocation.
type Context struct {
	Bot     Bot
	Message *chat.Message
	Thread  chat.Thread
	Author  chat.User
	Command *Descriptor
}

func newContext(bot Bot, msg *chat.Message) *Context {
	return &Context{
		Bot:     bot,
		Message: msg,
		Thread:  msg.Thread(),
		Author:  msg.Author,
	}
}

// Send posts content to the thread the command was issued in.
func (c *Context) Send(content string) {
	c.Bot.Publish(&bus.OutboundMessage{
		ThreadID:    c.Thread.ID,
		CommunityID: c.Thread.CommunityID,
		Content:     content,
	})
}

// Reply posts content as a reply to the triggering message.
func (c *Context) Reply(content string) {
	c.Bot.Publish(&bus.OutboundMessage{
		ThreadID:    c.Thread.ID,
		CommunityID: c.Thread.CommunityID,
		Content:     content,
		ReplyTo:     c.Message.ID,
	})
}
