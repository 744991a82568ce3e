package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/npcforge/npcforge/internal/channels/discord"
)

func inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite",
		Short: "Print the OAuth2 URL that adds the bot to a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			clientID := cfg.Discord.ApplicationID
			if clientID == "" {
				if cfg.Discord.Token == "" {
					return fmt.Errorf("set NPCFORGE_DISCORD_APPLICATION_ID or NPCFORGE_DISCORD_TOKEN")
				}
				session, err := discordgo.New("Bot " + cfg.Discord.Token)
				if err != nil {
					return fmt.Errorf("create discord session: %w", err)
				}
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				id, err := discord.FetchIdentity(ctx, session)
				if err != nil {
					return err
				}
				fmt.Printf("bot: %s (%s)\n", id.Username, id.UserID)
				clientID = id.ApplicationID
			}

			fmt.Println(discord.InviteURL(clientID, cfg.Discord.InvitePermissions))
			return nil
		},
	}
}
