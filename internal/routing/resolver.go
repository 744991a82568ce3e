package routing

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

// NPCGetter loads NPC profiles.
type NPCGetter interface {
	GetNPC(ctx context.Context, id uuid.UUID) (*store.NPC, error)
}

// Resolver picks one bot configuration out of the directory's candidates.
type Resolver struct {
	npcs    NPCGetter
	recency *Recency

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

func NewResolver(npcs NPCGetter, recency *Recency) *Resolver {
	if recency == nil {
		recency = NewRecency(DefaultRecencySize)
	}
	return &Resolver{npcs: npcs, recency: recency, patterns: make(map[string]*regexp.Regexp)}
}

// Select chooses the configuration that should answer text, sent by userID in
// channelID. Precedence: single candidate, whole-word NPC name, substring NPC
// name, the user's last configuration in this channel, first candidate.
// The choice is remembered for the (user, channel) pair.
func (r *Resolver) Select(ctx context.Context, candidates []store.BotConfig, text, userID, channelID string) (*store.BotConfig, bool) {
	chosen := r.choose(ctx, candidates, text, userID, channelID)
	if chosen == nil {
		return nil, false
	}
	r.recency.Set(userID, channelID, chosen.ID)
	return chosen, true
}

func (r *Resolver) choose(ctx context.Context, candidates []store.BotConfig, text, userID, channelID string) *store.BotConfig {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return &candidates[0]
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		npc, err := r.npcs.GetNPC(ctx, c.NPCID)
		if err != nil {
			slog.Warn("routing: skip candidate, npc lookup failed", "bot", c.ID, "npc", c.NPCID, "error", err)
			continue
		}
		names[i] = npc.Name
	}

	for i, name := range names {
		if name != "" && r.wordPattern(name).MatchString(text) {
			return &candidates[i]
		}
	}

	lower := strings.ToLower(text)
	for i, name := range names {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return &candidates[i]
		}
	}

	if id, ok := r.recency.Get(userID, channelID); ok {
		for i := range candidates {
			if candidates[i].ID == id {
				return &candidates[i]
			}
		}
		r.recency.Evict(userID, channelID)
	}

	return &candidates[0]
}

// wordPattern compiles a case-insensitive whole-word matcher for name.
// Names are literal; regex metacharacters are escaped.
func (r *Resolver) wordPattern(name string) *regexp.Regexp {
	r.mu.Lock()
	defer r.mu.Unlock()
	if re, ok := r.patterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	r.patterns[name] = re
	return re
}
