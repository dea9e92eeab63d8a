package bus

// OutboundMessage is a chat message the bot wants to post.
type OutboundMessage struct {
	ThreadID    string
	CommunityID int
	Content     string
	// ReplyTo is the id of the message being replied to, if any.
	ReplyTo string
}
