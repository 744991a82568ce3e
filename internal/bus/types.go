package bus

import "context"

// InboundMessage is a chat message that addressed the bot, as received from
// a channel (Discord, ...).
type InboundMessage struct {
	Channel    string            `json:"channel"`
	MessageID  string            `json:"message_id"`
	ServerID   string            `json:"server_id"` // guild
	ChatID     string            `json:"chat_id"`   // text channel
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name,omitempty"`
	SenderBot  bool              `json:"sender_bot,omitempty"`
	Mentions   []string          `json:"mentions,omitempty"` // mentioned user IDs
	Content    string            `json:"content"`            // bot mention tokens removed, trimmed
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// MessageRouter abstracts inbound message routing between channels and the
// reply pipeline.
type MessageRouter interface {
	PublishInbound(msg InboundMessage) bool
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
}
