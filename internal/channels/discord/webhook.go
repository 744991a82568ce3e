package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/singleflight"

	"github.com/npcforge/npcforge/internal/store"
)

const (
	maxMessageLen  = 2000
	maxWebhookName = 80
	maxUsernameLen = 80

	webhookLookupTimeout = 15 * time.Second
)

// WebhookAPI is the subset of the Discord REST API used for delivery.
// *discordgo.Session satisfies it.
type WebhookAPI interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AssetSigner turns a stored asset path into a temporary public URL.
type AssetSigner interface {
	SignedURL(path string, ttl time.Duration) (string, bool)
}

// DelivererConfig tunes webhook delivery.
type DelivererConfig struct {
	// Prefix tags webhooks created by this service; only tagged webhooks
	// are reused.
	Prefix    string
	AvatarTTL time.Duration
}

// Deliverer posts NPC replies into channels through per-channel webhooks so
// they appear under the NPC's name and portrait.
type Deliverer struct {
	api    WebhookAPI
	assets AssetSigner
	cfg    DelivererConfig

	mu    sync.Mutex
	hooks map[string]*discordgo.Webhook // channelID -> webhook
	group singleflight.Group
}

// NewDeliverer creates a Deliverer. assets may be nil, in which case replies
// are posted without an avatar.
func NewDeliverer(api WebhookAPI, assets AssetSigner, cfg DelivererConfig) *Deliverer {
	if cfg.Prefix == "" {
		cfg.Prefix = "npcforge"
	}
	if cfg.AvatarTTL <= 0 {
		cfg.AvatarTTL = time.Hour
	}
	return &Deliverer{
		api:    api,
		assets: assets,
		cfg:    cfg,
		hooks:  make(map[string]*discordgo.Webhook),
	}
}

// Deliver posts content to channelID as npc. It reports whether every chunk
// was delivered. Failures are logged and never retried.
func (d *Deliverer) Deliver(ctx context.Context, bot *store.BotConfig, npc *store.NPC, channelID, content string) bool {
	if npc == nil || strings.TrimSpace(content) == "" {
		return false
	}

	hook, err := d.webhook(ctx, channelID, npc.Name)
	if err != nil {
		slog.Warn("discord: resolve webhook failed", "channel_id", channelID, "bot_id", bot.ID, "error", err)
		return false
	}

	params := discordgo.WebhookParams{
		Username: truncateRunes(npc.Name, maxUsernameLen),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if d.assets != nil && npc.PortraitPath != "" {
		if u, ok := d.assets.SignedURL(npc.PortraitPath, d.cfg.AvatarTTL); ok {
			params.AvatarURL = u
		} else {
			slog.Debug("discord: portrait unavailable", "npc_id", npc.ID, "path", npc.PortraitPath)
		}
	}

	for i, chunk := range splitMessage(content, maxMessageLen) {
		p := params
		p.Content = chunk
		if _, err := d.api.WebhookExecute(hook.ID, hook.Token, false, &p, discordgo.WithContext(ctx)); err != nil {
			d.forget(channelID, hook.ID)
			slog.Warn("discord: webhook execute failed",
				"channel_id", channelID,
				"bot_id", bot.ID,
				"npc", npc.Name,
				"chunk", i,
				"status", restStatus(err),
				"error", err,
			)
			return false
		}
	}

	slog.Debug("discord: reply delivered", "channel_id", channelID, "npc", npc.Name, "len", len(content))
	return true
}

// webhook returns a cached or discovered tagged webhook for channelID,
// creating one named after npcName when none exists. Concurrent callers for
// the same channel share a single lookup.
func (d *Deliverer) webhook(ctx context.Context, channelID, npcName string) (*discordgo.Webhook, error) {
	d.mu.Lock()
	hook, ok := d.hooks[channelID]
	d.mu.Unlock()
	if ok {
		return hook, nil
	}

	v, err, _ := d.group.Do(channelID, func() (any, error) {
		// Shared by every waiter on the channel, so it must outlive the
		// first caller's deadline.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookLookupTimeout)
		defer cancel()

		existing, err := d.api.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list webhooks: %w", err)
		}
		for _, w := range existing {
			if d.reusable(w) {
				d.remember(channelID, w)
				return w, nil
			}
		}

		created, err := d.api.WebhookCreate(channelID, d.webhookName(npcName), "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("create webhook: %w", err)
		}
		slog.Info("discord: webhook created", "channel_id", channelID, "webhook_id", created.ID, "name", created.Name)
		d.remember(channelID, created)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*discordgo.Webhook), nil
}

func (d *Deliverer) reusable(w *discordgo.Webhook) bool {
	return w != nil && w.Token != "" && strings.HasPrefix(w.Name, d.cfg.Prefix)
}

func (d *Deliverer) webhookName(npcName string) string {
	name := d.cfg.Prefix
	if npcName != "" {
		name += ":" + npcName
	}
	return truncateRunes(name, maxWebhookName)
}

func (d *Deliverer) remember(channelID string, w *discordgo.Webhook) {
	d.mu.Lock()
	d.hooks[channelID] = w
	d.mu.Unlock()
}

// forget drops the cached webhook of channelID if it is still hookID.
func (d *Deliverer) forget(channelID, hookID string) {
	d.mu.Lock()
	if w, ok := d.hooks[channelID]; ok && w.ID == hookID {
		delete(d.hooks, channelID)
	}
	d.mu.Unlock()
}

// splitMessage cuts content into chunks of at most maxLen bytes, preferring
// a newline in the second half of a chunk and never splitting a rune.
func splitMessage(content string, maxLen int) []string {
	var chunks []string
	for len(content) > maxLen {
		cutAt := maxLen
		if idx := lastIndexByte(content[:maxLen], '\n'); idx > maxLen/2 {
			cutAt = idx + 1
		} else {
			for cutAt > 0 && !utf8.RuneStart(content[cutAt]) {
				cutAt--
			}
		}
		chunks = append(chunks, content[:cutAt])
		content = content[cutAt:]
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func restStatus(err error) int {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode
	}
	return 0
}
