package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/npcforge/npcforge/internal/config"
)

const inviteURLFormat = "https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands"

// InviteURL returns the OAuth2 URL that adds the bot to a server with the
// given permission bits. perms <= 0 uses the default set needed for
// reading history and managing webhooks.
func InviteURL(clientID string, perms int64) string {
	if perms <= 0 {
		perms = config.DefaultInvitePermissions
	}
	return fmt.Sprintf(inviteURLFormat, clientID, perms)
}

// IdentityAPI reads the bot's own user and application.
// *discordgo.Session satisfies it.
type IdentityAPI interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Application(appID string) (*discordgo.Application, error)
}

// Identity describes the bot account behind the configured token.
type Identity struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	ApplicationID string `json:"application_id"`
}

// FetchIdentity looks up the bot user and its application. When the
// application lookup fails the user ID is used as client ID, which matches
// for every bot created through the developer portal.
func FetchIdentity(ctx context.Context, api IdentityAPI) (*Identity, error) {
	u, err := api.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch bot user: %w", err)
	}
	id := &Identity{UserID: u.ID, Username: u.Username, ApplicationID: u.ID}
	if app, err := api.Application("@me"); err == nil && app.ID != "" {
		id.ApplicationID = app.ID
	}
	return id, nil
}
