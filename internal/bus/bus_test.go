package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	b := New(2)
	if !b.PublishInbound(InboundMessage{MessageID: "1"}) || !b.PublishInbound(InboundMessage{MessageID: "2"}) {
		t.Fatal("publish into empty buffer rejected")
	}
	if b.PublishInbound(InboundMessage{MessageID: "3"}) {
		t.Error("publish into full buffer accepted")
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", b.Dropped())
	}

	for _, want := range []string{"1", "2"} {
		msg, ok := b.ConsumeInbound(context.Background())
		if !ok || msg.MessageID != want {
			t.Errorf("ConsumeInbound = %q,%v; want %q", msg.MessageID, ok, want)
		}
	}
}

func TestConsumeCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := New(1).ConsumeInbound(ctx); ok {
		t.Error("ConsumeInbound on empty bus returned a message")
	}
}
