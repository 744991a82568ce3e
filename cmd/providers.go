package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/npcforge/npcforge/internal/config"
	"github.com/npcforge/npcforge/internal/providers"
)

// Default API bases for OpenAI-compatible providers.
var openAICompatibleBases = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"groq":       "https://api.groq.com/openai/v1",
	"deepseek":   "https://api.deepseek.com/v1",
}

// newProvider builds the language model client selected by cfg.Model.
func newProvider(ctx context.Context, cfg *config.Config) (providers.Provider, error) {
	name := cfg.Model.Provider
	pc, ok := cfg.Providers.Provider(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("provider %s has no API key (set NPCFORGE_%s_API_KEY)", name, envName(name))
	}

	var p providers.Provider
	switch name {
	case "anthropic":
		opts := []providers.AnthropicOption{providers.WithAnthropicModel(cfg.Model.Model)}
		if pc.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(pc.APIBase))
		}
		p = providers.NewAnthropicProvider(pc.APIKey, opts...)
	case "gemini":
		g, err := providers.NewGeminiProvider(ctx, pc.APIKey, cfg.Model.Model)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		base := pc.APIBase
		if base == "" {
			base = openAICompatibleBases[name]
		}
		p = providers.NewOpenAIProvider(name, pc.APIKey, base, cfg.Model.Model)
	}

	slog.Info("registered provider", "name", p.Name(), "model", p.DefaultModel())
	return p, nil
}

func envName(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI"
	case "openrouter":
		return "OPENROUTER"
	case "groq":
		return "GROQ"
	case "deepseek":
		return "DEEPSEEK"
	case "anthropic":
		return "ANTHROPIC"
	case "gemini":
		return "GEMINI"
	}
	return provider
}
