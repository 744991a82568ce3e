package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json5")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Model != "gpt-4o-mini" || cfg.Model.Temperature != 0.8 || cfg.Model.MaxTokens != 200 {
		t.Errorf("model defaults = %+v", cfg.Model)
	}
	if cfg.Discord.HistoryLimit != 20 || cfg.Routing.RecencyCacheSize != 10000 || cfg.Assets.URLTTLMinutes != 60 {
		t.Errorf("defaults = %+v %+v %+v", cfg.Discord, cfg.Routing, cfg.Assets)
	}
}

func TestLoadExistingRequiresFile(t *testing.T) {
	t.Setenv("NPCFORGE_TEMPERATURE", "")
	path := filepath.Join(t.TempDir(), "typo.json5")
	if _, err := LoadExisting(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadExisting(missing) err = %v, want not-exist", err)
	}

	cfg, err := LoadExisting(writeConfig(t, `{model: {temperature: 0}}`))
	if err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", cfg.Model.Temperature)
	}
}

func TestLoadJSON5AndEnv(t *testing.T) {
	path := writeConfig(t, `{
		// comments and trailing commas are fine
		discord: { allow_servers: [123456789012345678, "42"], token: "from-file", },
		model: { provider: "anthropic", model: "claude-3-5-haiku-latest", temperature: 0.5 },
		routing: { placement_scope: "npc" },
	}`)
	t.Setenv("NPCFORGE_DISCORD_TOKEN", "from-env")
	t.Setenv("NPCFORGE_MAX_TOKENS", "300")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Errorf("Token = %q, want env value", cfg.Discord.Token)
	}
	if got := []string(cfg.Discord.AllowServers); len(got) != 2 || got[0] != "123456789012345678" || got[1] != "42" {
		t.Errorf("AllowServers = %v", got)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.Temperature != 0.5 || cfg.Model.MaxTokens != 300 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Routing.PlacementScope != "npc" {
		t.Errorf("PlacementScope = %q", cfg.Routing.PlacementScope)
	}
}

func TestLoadIgnoresFileSecrets(t *testing.T) {
	path := writeConfig(t, `{ discord: { token: "leaked" }, http: { token: "leaked" } }`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "" || cfg.HTTP.Token != "" {
		t.Errorf("secrets read from file: %q %q", cfg.Discord.Token, cfg.HTTP.Token)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown provider", `{ model: { provider: "skynet" } }`},
		{"bad scope", `{ routing: { placement_scope: "galaxy" } }`},
		{"zero max tokens", `{ model: { max_tokens: 0 } }`},
		{"managed without dsn", `{ database: { mode: "managed" } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Errorf("Load(%s) succeeded, want validation error", tt.body)
			}
		})
	}
}

func TestMaskedCopy(t *testing.T) {
	cfg := Default()
	cfg.Discord.Token = "secret"
	cfg.Database.PostgresDSN = "postgres://u:p@h/db"

	cp := cfg.MaskedCopy()
	if cp.Discord.Token != secretMask || cp.Database.PostgresDSN != secretMask {
		t.Errorf("not masked: %q %q", cp.Discord.Token, cp.Database.PostgresDSN)
	}
	if cp.HTTP.Token != "" {
		t.Errorf("empty secret masked: %q", cp.HTTP.Token)
	}
	if cfg.Discord.Token != "secret" {
		t.Error("MaskedCopy modified the original")
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandHome("~/x"); !strings.HasPrefix(got, home) || !strings.HasSuffix(got, "/x") {
		t.Errorf("ExpandHome(~/x) = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}
