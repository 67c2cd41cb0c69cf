// Package bus carries inbound chat events from channels to the dispatcher.
package bus

import "time"

// MessageType distinguishes plain chat text from everything else the transport delivers.
type MessageType string

const (
	MessageTypeChat  MessageType = "chat"
	MessageTypeOther MessageType = "other"
)

// InboundMessage is one event received from a channel. It is never mutated after publish.
type InboundMessage struct {
	ID         string      `json:"id"`
	Channel    string      `json:"channel"`
	ChatID     string      `json:"chat_id"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	IsGroup    bool        `json:"is_group"`
	Type       MessageType `json:"type"`
	TraceID    string      `json:"trace_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
