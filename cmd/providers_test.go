package cmd

import (
	"context"
	"testing"

	"github.com/npcforge/npcforge/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		setKey   func(*config.ProvidersConfig)
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", func(p *config.ProvidersConfig) { p.OpenAI.APIKey = "k" }, "openai", false},
		{"groq", "groq", func(p *config.ProvidersConfig) { p.Groq.APIKey = "k" }, "groq", false},
		{"anthropic", "anthropic", func(p *config.ProvidersConfig) { p.Anthropic.APIKey = "k" }, "anthropic", false},
		{"missing key", "deepseek", func(*config.ProvidersConfig) {}, "", true},
		{"unknown", "mystery", func(*config.ProvidersConfig) {}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Model.Provider = tt.provider
			tt.setKey(&cfg.Providers)

			p, err := newProvider(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newProvider: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
