// Package socket implements the realtime connection: a signed WebSocket
// handshake with retry and periodic reconnect, and the dispatcher that routes
// inbound frames to commands and event hooks.
package socket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

// Frame type codes.
const (
	TypeNotification    = 10
	TypeLiveLayerEvent  = 201
	TypeSubscribeLive   = 300
	TypeUnsubscribeLive = 301
	TypeMessage         = 1000
	TypeMessageAck      = 1001
)

// Notification subtypes with dedicated hooks.
const (
	NotifMessage         = 18
	NotifInviteVoiceChat = 21
	NotifStartVoiceChat  = 22
)

// Live-layer topic names with dedicated hooks.
const (
	TopicStartTyping    = "users-start-typing-at"
	TopicEndTyping      = "users-end-typing-at"
	TopicStartRecording = "users-start-recording-at"
	TopicEndRecording   = "users-end-recording-at"
	TopicOnlineMembers  = "online-members"
)

const topicPrefix = "ndtopic"

// Frame is one inbound message on the socket.
type Frame struct {
	Type    int             `json:"t"`
	Payload json.RawMessage `json:"o"`
}

type outboundFrame struct {
	Type    int            `json:"t"`
	Payload map[string]any `json:"o"`
}

// DecodeFrame parses a raw socket message.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Topic is a parsed live-layer topic string.
type Topic struct {
	Scope  string
	Name   string
	Extras string
}

// ParseTopic splits "ndtopic:<scope>:<name>[:<extras>]". Extras keep any
// further colons.
func ParseTopic(s string) (Topic, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return Topic{}, fmt.Errorf("invalid topic %q", s)
	}
	t := Topic{Scope: parts[1], Name: parts[2]}
	if len(parts) == 4 {
		t.Extras = parts[3]
	}
	return t, nil
}

// TopicString builds the subscription topic for name, scoped to a community
// when one is given.
func TopicString(name string, community mo.Option[int]) string {
	if id, ok := community.Get(); ok {
		return topicPrefix + ":x" + strconv.Itoa(id) + ":" + name
	}
	return topicPrefix + ":g:" + name
}
