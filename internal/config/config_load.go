package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"
)

// DefaultInvitePermissions covers reading history, sending messages and
// managing webhooks.
const DefaultInvitePermissions int64 = 2863576804359376

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			Enabled:           true,
			WebhookPrefix:     "npcforge",
			HistoryLimit:      20,
			InvitePermissions: DefaultInvitePermissions,
		},
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
			MaxTokens:   200,
		},
		Routing: RoutingConfig{
			RecencyCacheSize: 10000,
			PlacementScope:   "server",
		},
		Pipeline: PipelineConfig{
			TimeoutSec:         60,
			MaxConcurrent:      64,
			BusBuffer:          256,
			RateLimitPerMinute: 20,
			RateLimitBurst:     5,
		},
		Database: DatabaseConfig{
			Mode:       "standalone",
			SQLitePath: "~/.npcforge/npcforge.db",
		},
		Assets: AssetsConfig{
			Dir:           "~/.npcforge/assets",
			BaseURL:       "http://localhost:8080",
			URLTTLMinutes: 60,
			PortraitSize:  256,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "npcforge",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env are used.
func Load(path string) (*Config, error) {
	return load(path, false)
}

// LoadExisting is Load for a path the operator named explicitly: a missing
// file is an error rather than a silent fall back to defaults.
func LoadExisting(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && (mustExist || !os.IsNotExist(err)) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.StripSecrets()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Database.Mode == "managed" && c.Database.PostgresDSN == "" {
		return fmt.Errorf("invalid config: managed mode requires NPCFORGE_POSTGRES_DSN")
	}
	return nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	// Secrets
	envStr("NPCFORGE_DISCORD_TOKEN", &c.Discord.Token)
	envStr("NPCFORGE_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("NPCFORGE_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("NPCFORGE_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("NPCFORGE_DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("NPCFORGE_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("NPCFORGE_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("NPCFORGE_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("NPCFORGE_ASSET_SIGNING_KEY", &c.Assets.SigningKey)
	envStr("NPCFORGE_HTTP_TOKEN", &c.HTTP.Token)

	// Discord
	envStr("NPCFORGE_DISCORD_APPLICATION_ID", &c.Discord.ApplicationID)
	envStr("NPCFORGE_WEBHOOK_PREFIX", &c.Discord.WebhookPrefix)
	envInt("NPCFORGE_HISTORY_LIMIT", &c.Discord.HistoryLimit)

	// Model
	envStr("NPCFORGE_PROVIDER", &c.Model.Provider)
	envStr("NPCFORGE_MODEL", &c.Model.Model)
	envInt("NPCFORGE_MAX_TOKENS", &c.Model.MaxTokens)
	if v := os.Getenv("NPCFORGE_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t >= 0 {
			c.Model.Temperature = t
		}
	}

	// Routing & pipeline
	envInt("NPCFORGE_RECENCY_CACHE_SIZE", &c.Routing.RecencyCacheSize)
	envStr("NPCFORGE_PLACEMENT_SCOPE", &c.Routing.PlacementScope)
	envInt("NPCFORGE_PIPELINE_TIMEOUT_SEC", &c.Pipeline.TimeoutSec)

	// Storage
	envStr("NPCFORGE_MODE", &c.Database.Mode)
	envStr("NPCFORGE_SQLITE_PATH", &c.Database.SQLitePath)
	envStr("NPCFORGE_ASSETS_DIR", &c.Assets.Dir)
	envStr("NPCFORGE_ASSETS_BASE_URL", &c.Assets.BaseURL)

	// HTTP
	envStr("NPCFORGE_HOST", &c.HTTP.Host)
	envInt("NPCFORGE_PORT", &c.HTTP.Port)

	// Telemetry
	envBool("NPCFORGE_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envStr("NPCFORGE_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("NPCFORGE_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("NPCFORGE_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("NPCFORGE_TELEMETRY_INSECURE", &c.Telemetry.Insecure)
}
