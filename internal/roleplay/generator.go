package roleplay

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/npcforge/npcforge/internal/providers"
	"github.com/npcforge/npcforge/internal/store"
)

const (
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 200
)

// GeneratorConfig tunes model calls. A negative temperature or a
// non-positive token budget falls back to the defaults; temperature 0 is kept.
type GeneratorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator produces NPC replies through a Provider.
type Generator struct {
	provider providers.Provider
	cfg      GeneratorConfig
}

func NewGenerator(p providers.Provider, cfg GeneratorConfig) *Generator {
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Generator{provider: p, cfg: cfg}
}

// Generate asks the model for npc's reply to newMessage, given the earlier
// history of the channel. An empty string means the model produced nothing
// worth posting; it is not an error.
func (g *Generator) Generate(ctx context.Context, bot *store.BotConfig, npc *store.NPC, world *store.World, history iter.Seq[Turn], newMessage string) (string, error) {
	msgs := []providers.Message{{Role: providers.RoleSystem, Content: SystemPrompt(npc, world)}}
	if history != nil {
		for t := range history {
			msgs = append(msgs, t.message())
		}
	}
	msgs = append(msgs, providers.Message{Role: providers.RoleUser, Content: newMessage})

	resp, err := g.provider.Chat(ctx, providers.ChatRequest{
		Messages: msgs,
		Model:    g.cfg.Model,
		Options: map[string]any{
			providers.OptTemperature: g.cfg.Temperature,
			providers.OptMaxTokens:   g.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s reply for bot %s: %w", g.provider.Name(), bot.ID, err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Content), nil
}
