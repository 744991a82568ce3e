package discord

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/npcforge/npcforge/internal/roleplay"
)

const (
	DefaultHistoryLimit = 20
	maxFetchLimit       = 100 // Discord's page size cap
)

// MessageFetcher reads a page of channel messages, newest first.
// *discordgo.Session satisfies it.
type MessageFetcher interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// HistoryBuilder rebuilds a conversation from a channel's message log.
// Replies the service posted through webhooks become assistant turns,
// everyone else's messages become user turns.
type HistoryBuilder struct {
	api   MessageFetcher
	botID func() string
	limit int
}

// NewHistoryBuilder returns a builder reading through api. botID reports the
// bot's own user ID; it is called per fetch since the ID is only known once
// the gateway is connected.
func NewHistoryBuilder(api MessageFetcher, botID func() string, limit int) *HistoryBuilder {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryBuilder{api: api, botID: botID, limit: limit}
}

// Turns returns up to limit turns of channelID, oldest first.
func (h *HistoryBuilder) Turns(ctx context.Context, channelID string, limit int) (iter.Seq[roleplay.Turn], error) {
	return h.TurnsBefore(ctx, channelID, "", limit)
}

// TurnsBefore is Turns restricted to messages older than beforeID, which
// keeps the message being answered out of its own context.
//
// The page is fetched eagerly; filtering and classification happen lazily
// as the sequence is ranged over.
func (h *HistoryBuilder) TurnsBefore(ctx context.Context, channelID, beforeID string, limit int) (iter.Seq[roleplay.Turn], error) {
	if limit <= 0 {
		limit = h.limit
	}
	limit = min(limit, maxFetchLimit)

	msgs, err := h.api.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch history of channel %s: %w", channelID, err)
	}
	botID := ""
	if h.botID != nil {
		botID = h.botID()
	}

	return func(yield func(roleplay.Turn) bool) {
		for _, m := range slices.Backward(msgs) {
			t, ok := turnFromMessage(m, botID)
			if !ok {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// turnFromMessage classifies one message. Other bots' messages are dropped;
// webhook posts and the bot's own messages are assistant turns.
func turnFromMessage(m *discordgo.Message, botID string) (roleplay.Turn, bool) {
	if m == nil || m.Author == nil {
		return roleplay.Turn{}, false
	}
	own := botID != "" && m.Author.ID == botID
	if m.Author.Bot && !own && m.WebhookID == "" {
		return roleplay.Turn{}, false
	}

	content := m.Content
	if botID != "" {
		content = stripMention(content, botID)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return roleplay.Turn{}, false
	}

	role := roleplay.RoleUser
	if m.WebhookID != "" || own {
		role = roleplay.RoleAssistant
	}
	return roleplay.Turn{Role: role, Content: content}, true
}
