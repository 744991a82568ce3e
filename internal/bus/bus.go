// Package bus carries inbound chat messages from channels to consumers.
package bus

import (
	"context"
	"log/slog"
	"sync/atomic"
)

const defaultBufferSize = 256

// MessageBus is an in-process, buffered queue of inbound messages.
// Publishing never blocks: when the buffer is full the message is dropped.
type MessageBus struct {
	inbound chan InboundMessage
	dropped atomic.Int64
}

func New(bufferSize int) *MessageBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &MessageBus{inbound: make(chan InboundMessage, bufferSize)}
}

// PublishInbound enqueues msg and reports whether it was accepted.
func (b *MessageBus) PublishInbound(msg InboundMessage) bool {
	select {
	case b.inbound <- msg:
		return true
	default:
		n := b.dropped.Add(1)
		slog.Warn("bus: inbound buffer full, message dropped",
			"channel", msg.Channel, "chat_id", msg.ChatID, "message_id", msg.MessageID, "dropped_total", n)
		return false
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// Dropped returns how many messages were discarded because the buffer was full.
func (b *MessageBus) Dropped() int64 { return b.dropped.Load() }
