// Package chat holds the entities carried by socket frames and the minimal
// mapping from their wire payloads.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used in socket payloads.
const TimeLayout = "2006-01-02T15:04:05Z"

// User is a (possibly partial) profile. CommunityID is set when the user was
// received as a member of a community.
type User struct {
	ID          string `json:"uid"`
	Nickname    string `json:"nickname"`
	Icon        string `json:"icon"`
	Content     string `json:"content"`
	CommunityID int    `json:"ndcId,omitempty"`
}

// IsMember reports whether the user is scoped to a community.
func (u User) IsMember() bool { return u.CommunityID != 0 }

// Thread identifies a chat thread. CommunityID 0 means the global scope.
type Thread struct {
	ID          string
	CommunityID int
}

// Message is a chat message received over the socket.
type Message struct {
	ID          string
	ThreadID    string
	CommunityID int
	Author      User
	Content     string
	Type        int
	MediaType   int
	CreatedTime time.Time

	// RawCreatedTime is echoed back verbatim in the acknowledgment.
	RawCreatedTime string
}

// Thread returns the thread the message was posted in.
func (m *Message) Thread() Thread {
	return Thread{ID: m.ThreadID, CommunityID: m.CommunityID}
}

type wireMessage struct {
	MessageID   string `json:"messageId"`
	ThreadID    string `json:"threadId"`
	Content     string `json:"content"`
	Type        int    `json:"type"`
	MediaType   int    `json:"mediaType"`
	CreatedTime string `json:"createdTime"`
	Author      User   `json:"author"`
}

// DecodeMessage maps the payload of a MESSAGE frame ({"ndcId": .., "chatMessage": {..}}).
func DecodeMessage(raw json.RawMessage) (*Message, error) {
	var envelope struct {
		CommunityID int          `json:"ndcId"`
		ChatMessage *wireMessage `json:"chatMessage"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if envelope.ChatMessage == nil {
		return nil, fmt.Errorf("decode message: missing chatMessage")
	}
	w := envelope.ChatMessage

	msg := &Message{
		ID:             w.MessageID,
		ThreadID:       w.ThreadID,
		CommunityID:    envelope.CommunityID,
		Author:         w.Author,
		Content:        w.Content,
		Type:           w.Type,
		MediaType:      w.MediaType,
		RawCreatedTime: w.CreatedTime,
	}
	if envelope.CommunityID != 0 {
		msg.Author.CommunityID = envelope.CommunityID
	}
	if w.CreatedTime != "" {
		if ts, err := time.Parse(TimeLayout, w.CreatedTime); err == nil {
			msg.CreatedTime = ts
		}
	}
	return msg, nil
}

// Notification is a push notification delivered over the socket.
type Notification struct {
	Type        int
	ID          string
	ThreadID    string
	CommunityID int
	MessageType int
	Timestamp   time.Time
	Payload     map[string]any
}

// DecodeNotification maps the payload of a NOTIFICATION frame ({"payload": {..}}).
func DecodeNotification(raw json.RawMessage) (*Notification, error) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	n := &Notification{Payload: map[string]any{}}
	if len(envelope.Payload) == 0 {
		return n, nil
	}

	var p struct {
		Type        int    `json:"notifType"`
		ID          string `json:"id"`
		ThreadID    string `json:"tid"`
		CommunityID int    `json:"ndcId"`
		MessageType int    `json:"msgType"`
		Timestamp   string `json:"ts"`
	}
	if err := json.Unmarshal(envelope.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode notification payload: %w", err)
	}
	if err := json.Unmarshal(envelope.Payload, &n.Payload); err != nil {
		return nil, fmt.Errorf("decode notification payload: %w", err)
	}

	n.Type = p.Type
	n.ID = p.ID
	n.ThreadID = p.ThreadID
	n.CommunityID = p.CommunityID
	n.MessageType = p.MessageType
	if p.Timestamp != "" {
		if ts, err := time.Parse(TimeLayout, p.Timestamp); err == nil {
			n.Timestamp = ts
		}
	}
	return n, nil
}

// LiveEvent is a live-layer event. Scope, Topic and Extras come from the
// colon-delimited topic string; Payload is the raw frame body.
type LiveEvent struct {
	Scope   string
	Topic   string
	Extras  string
	Payload map[string]any
}
