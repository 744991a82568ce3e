package discord

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/npcforge/npcforge/internal/store"
)

const (
	recentPerChannel   = 50
	defaultRecentLimit = 20
	recentFetchWorkers = 4
)

// ChannelLister reads messages and the channel list of a guild.
// *discordgo.Session satisfies it.
type ChannelLister interface {
	MessageFetcher
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// RecentResponse is one webhook-posted reply found in a channel.
type RecentResponse struct {
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	NPCID     uuid.UUID `json:"npc_id"`
}

// RecentResponses lists the latest webhook-posted messages in the channels a
// bot configuration covers: its own channel, or every text channel of the
// server when it is server-wide. Only messages whose webhook author matches
// one of npcs by name are kept. Results are newest first, at most limit.
func RecentResponses(ctx context.Context, api ChannelLister, bot *store.BotConfig, npcs []store.NPC, limit int) ([]RecentResponse, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	channelIDs := []string{bot.ChannelID}
	if bot.IsServerWide() {
		chans, err := api.GuildChannels(bot.ServerID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list channels of server %s: %w", bot.ServerID, err)
		}
		channelIDs = channelIDs[:0]
		for _, ch := range chans {
			if ch.Type == discordgo.ChannelTypeGuildText {
				channelIDs = append(channelIDs, ch.ID)
			}
		}
	}

	byName := make(map[string]uuid.UUID, len(npcs))
	for _, n := range npcs {
		byName[strings.ToLower(n.Name)] = n.ID
	}

	var (
		mu  sync.Mutex
		out []RecentResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recentFetchWorkers)
	for _, id := range channelIDs {
		g.Go(func() error {
			msgs, err := api.ChannelMessages(id, recentPerChannel, "", "", "", discordgo.WithContext(gctx))
			if err != nil {
				// One unreadable channel does not hide the others.
				slog.Warn("discord: recent responses fetch failed", "channel_id", id, "error", err)
				return nil
			}
			var found []RecentResponse
			for _, m := range msgs {
				if m == nil || m.WebhookID == "" || m.Author == nil {
					continue
				}
				npcID, ok := byName[strings.ToLower(m.Author.Username)]
				if !ok {
					continue
				}
				found = append(found, RecentResponse{
					MessageID: m.ID,
					ChannelID: id,
					Content:   m.Content,
					Author:    m.Author.Username,
					Timestamp: m.Timestamp,
					NPCID:     npcID,
				})
			}
			mu.Lock()
			out = append(out, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b RecentResponse) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
