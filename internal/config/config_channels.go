package config

// DiscordConfig configures the Discord bot account.
type DiscordConfig struct {
	Enabled bool `json:"enabled"`
	// Token comes from env NPCFORGE_DISCORD_TOKEN only.
	Token string `json:"token,omitempty"`
	// ApplicationID is the OAuth2 client ID; looked up from the API when empty.
	ApplicationID string `json:"application_id,omitempty"`
	// AllowServers restricts the guilds served (empty = all).
	AllowServers FlexibleStringSlice `json:"allow_servers,omitempty"`
	// WebhookPrefix tags the webhooks this service creates and may reuse.
	WebhookPrefix string `json:"webhook_prefix" validate:"required,max=40"`
	// HistoryLimit is the number of channel messages used as context (default 20).
	HistoryLimit      int   `json:"history_limit" validate:"gt=0,lte=100"`
	InvitePermissions int64 `json:"invite_permissions,omitempty"`
}

type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Groq       ProviderConfig `json:"groq"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Anthropic  ProviderConfig `json:"anthropic"`
	Gemini     ProviderConfig `json:"gemini"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	APIBase string `json:"api_base,omitempty"`
}

// Provider returns the settings for a provider by name.
func (p ProvidersConfig) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "openai":
		return p.OpenAI, true
	case "openrouter":
		return p.OpenRouter, true
	case "groq":
		return p.Groq, true
	case "deepseek":
		return p.DeepSeek, true
	case "anthropic":
		return p.Anthropic, true
	case "gemini":
		return p.Gemini, true
	}
	return ProviderConfig{}, false
}

// HasAnyProvider returns true if at least one provider has an API key configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.OpenAI.APIKey != "" ||
		p.OpenRouter.APIKey != "" ||
		p.Groq.APIKey != "" ||
		p.DeepSeek.APIKey != "" ||
		p.Anthropic.APIKey != "" ||
		p.Gemini.APIKey != ""
}
