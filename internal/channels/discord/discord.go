package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/npcforge/npcforge/internal/bus"
	"github.com/npcforge/npcforge/internal/channels"
	"github.com/npcforge/npcforge/internal/config"
)

// Channel connects to Discord via the Bot API using gateway events and
// publishes every message that mentions the bot onto the bus.
type Channel struct {
	*channels.BaseChannel
	session   *discordgo.Session
	config    config.DiscordConfig
	botUserID atomic.Value // string, populated on start
}

// New creates a new Discord channel from config.
func New(cfg config.DiscordConfig, msgBus bus.MessageRouter) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	c := &Channel{
		BaseChannel: channels.NewBaseChannel("discord", msgBus, cfg.AllowServers),
		session:     session,
		config:      cfg,
	}
	c.botUserID.Store("")
	return c, nil
}

// Session exposes the REST client shared by the history builder, the
// deliverer and the management commands.
func (c *Channel) Session() *discordgo.Session { return c.session }

// BotUserID returns the bot's own user ID, or "" before Start.
func (c *Channel) BotUserID() string { return c.botUserID.Load().(string) }

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID.Store(user.ID)

	c.SetRunning(true)
	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	c.SetRunning(false)
	return c.session.Close()
}

func (c *Channel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := inboundFromMessage(m.Message, c.BotUserID())
	if !ok {
		return
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.SenderName = m.Member.Nick
	}

	slog.Debug("discord mention received",
		"server_id", msg.ServerID,
		"channel_id", msg.ChatID,
		"sender_id", msg.SenderID,
		"preview", channels.Truncate(msg.Content, 50),
	)

	if !c.HandleMessage(msg) {
		slog.Debug("discord mention not published", "server_id", msg.ServerID, "message_id", msg.MessageID)
	}
}

// inboundFromMessage converts a gateway message into a bus message. It
// reports false for messages the bot must ignore: direct messages, bot
// authors, messages that do not mention botID and mentions with no text.
func inboundFromMessage(m *discordgo.Message, botID string) (bus.InboundMessage, bool) {
	if m == nil || m.Author == nil || m.Author.Bot || botID == "" {
		return bus.InboundMessage{}, false
	}
	if m.GuildID == "" {
		return bus.InboundMessage{}, false
	}

	mentioned := false
	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		mentions = append(mentions, u.ID)
		if u.ID == botID {
			mentioned = true
		}
	}
	if !mentioned {
		return bus.InboundMessage{}, false
	}

	content := strings.TrimSpace(stripMention(m.Content, botID))
	if content == "" {
		return bus.InboundMessage{}, false
	}

	return bus.InboundMessage{
		MessageID:  m.ID,
		ServerID:   m.GuildID,
		ChatID:     m.ChannelID,
		SenderID:   m.Author.ID,
		SenderName: resolveDisplayName(m.Author),
		SenderBot:  m.Author.Bot,
		Mentions:   mentions,
		Content:    content,
		Metadata: map[string]string{
			"username": m.Author.Username,
		},
	}, true
}

// stripMention removes both mention forms of botID (<@id> and <@!id>).
func stripMention(s, botID string) string {
	s = strings.ReplaceAll(s, "<@"+botID+">", "")
	return strings.ReplaceAll(s, "<@!"+botID+">", "")
}

// resolveDisplayName returns the best available name for a user.
// Priority: global display name > username. Server nicknames are applied by
// the caller when the member is known.
func resolveDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// lastIndexByte returns the last index of byte c in s, or -1.
func lastIndexByte(s string, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			return i
		}
	}
	return -1
}
