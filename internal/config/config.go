package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
// Discord snowflakes are often pasted as bare numbers.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case json.Number:
			result = append(result, val.String())
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for npcforge.
type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Providers ProvidersConfig `json:"providers"`
	Model     ModelConfig     `json:"model"`
	Routing   RoutingConfig   `json:"routing"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Database  DatabaseConfig  `json:"database"`
	Assets    AssetsConfig    `json:"assets"`
	HTTP      HTTPConfig      `json:"http"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// ModelConfig selects the language model used for NPC replies.
type ModelConfig struct {
	Provider    string  `json:"provider" validate:"oneof=openai openrouter groq deepseek anthropic gemini"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" validate:"gt=0,lte=4096"`
}

// RoutingConfig tunes NPC selection.
type RoutingConfig struct {
	// RecencyCacheSize bounds the remembered (user, channel) pairs (default 10000).
	RecencyCacheSize int `json:"recency_cache_size" validate:"gt=0"`
	// PlacementScope is "server" (default) or "npc".
	PlacementScope string `json:"placement_scope" validate:"oneof=server npc"`
}

// PipelineConfig bounds per-message work.
type PipelineConfig struct {
	TimeoutSec    int `json:"timeout_sec" validate:"gt=0"`    // overall budget per mention (default 60)
	MaxConcurrent int `json:"max_concurrent" validate:"gt=0"` // in-flight mentions (default 64)
	BusBuffer     int `json:"bus_buffer" validate:"gt=0"`     // inbound queue size (default 256)
	// RateLimitPerMinute caps replies per channel (default 20, 0 = off).
	RateLimitPerMinute int `json:"rate_limit_per_minute" validate:"gte=0"`
	RateLimitBurst     int `json:"rate_limit_burst" validate:"gte=0"`
}

// Timeout returns the per-message budget.
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is never read from config.json, only from env NPCFORGE_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	Mode        string `json:"mode,omitempty" validate:"oneof=standalone managed"` // "standalone" (default) or "managed"
	SQLitePath  string `json:"sqlite_path,omitempty"`                              // standalone database file
}

// IsManagedMode returns true if storage is Postgres.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// AssetsConfig locates NPC portraits and controls their signed URLs.
type AssetsConfig struct {
	Dir string `json:"dir"`
	// BaseURL is the public URL the HTTP server is reachable at.
	BaseURL string `json:"base_url" validate:"omitempty,url"`
	// SigningKey comes from env NPCFORGE_ASSET_SIGNING_KEY only.
	SigningKey    string `json:"signing_key,omitempty"`
	URLTTLMinutes int    `json:"url_ttl_minutes" validate:"gt=0"`
	PortraitSize  int    `json:"portrait_size" validate:"gte=64,lte=1024"`
}

// URLTTL returns the lifetime of a signed asset URL.
func (a AssetsConfig) URLTTL() time.Duration {
	return time.Duration(a.URLTTLMinutes) * time.Minute
}

// HTTPConfig configures the HTTP listener (health, assets, recent responses).
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port" validate:"gt=0,lt=65536"`
	Token   string `json:"token,omitempty"` // bearer token, from env NPCFORGE_HTTP_TOKEN only
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", h.Host, h.Port) }

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection (local collectors)
	ServiceName string            `json:"service_name,omitempty"` // default "npcforge"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

const secretMask = "***"

// MaskedCopy returns a deep copy of the config with all secret fields masked.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := json.Marshal(c)
	if err != nil {
		return &Config{}
	}
	cp := Default()
	if err := json.Unmarshal(data, cp); err != nil {
		return &Config{}
	}
	// json:"-" fields do not survive the round trip.
	cp.Database.PostgresDSN = c.Database.PostgresDSN

	for _, s := range cp.secrets() {
		maskNonEmpty(s)
	}
	return cp
}

// StripSecrets zeros out all secret fields. Load calls it before the env
// overlay so secrets never come from the config file.
func (c *Config) StripSecrets() {
	for _, s := range c.secrets() {
		*s = ""
	}
}

func (c *Config) secrets() []*string {
	return []*string{
		&c.Discord.Token,
		&c.Providers.OpenAI.APIKey,
		&c.Providers.OpenRouter.APIKey,
		&c.Providers.Groq.APIKey,
		&c.Providers.DeepSeek.APIKey,
		&c.Providers.Anthropic.APIKey,
		&c.Providers.Gemini.APIKey,
		&c.Database.PostgresDSN,
		&c.Assets.SigningKey,
		&c.HTTP.Token,
	}
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
