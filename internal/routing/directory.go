// Package routing decides which bot configuration, and so which NPC, answers
// a mention in a given channel.
package routing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

// BotLister is the part of store.BotStore the directory needs.
type BotLister interface {
	ListActiveForChannel(ctx context.Context, serverID, channelID string) ([]store.BotConfig, error)
}

// Directory answers which active bot configurations may respond in a
// (server, channel) pair.
type Directory struct {
	bots BotLister
}

func NewDirectory(bots BotLister) *Directory {
	return &Directory{bots: bots}
}

// FindCandidates returns the channel-specific configurations for channelID
// followed by the server-wide ones, active only and without duplicates.
// An empty result means no bot should respond.
func (d *Directory) FindCandidates(ctx context.Context, serverID, channelID string) ([]store.BotConfig, error) {
	all, err := d.bots.ListActiveForChannel(ctx, serverID, channelID)
	if err != nil {
		return nil, fmt.Errorf("list bots for %s/%s: %w", serverID, channelID, err)
	}

	seen := make(map[uuid.UUID]bool, len(all))
	out := make([]store.BotConfig, 0, len(all))
	add := func(wide bool) {
		for _, b := range all {
			if !b.Active || b.ServerID != serverID || seen[b.ID] || b.IsServerWide() != wide {
				continue
			}
			if !wide && b.ChannelID != channelID {
				continue
			}
			seen[b.ID] = true
			out = append(out, b)
		}
	}
	add(false)
	add(true)
	return out, nil
}
