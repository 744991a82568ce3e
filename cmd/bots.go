package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/npcforge/npcforge/internal/store"
)

func botsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage bot configurations (NPC placements in Discord servers)",
	}
	cmd.AddCommand(botsCreateCmd())
	cmd.AddCommand(botsListCmd())
	cmd.AddCommand(botsSetActiveCmd("activate", true))
	cmd.AddCommand(botsSetActiveCmd("deactivate", false))
	return cmd
}

func botsCreateCmd() *cobra.Command {
	var (
		npcID, serverID, channelID, name string
		inactive                         bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Place an NPC in a server, or in one channel of it",
		RunE: func(cmd *cobra.Command, args []string) error {
			nid, err := uuid.Parse(npcID)
			if err != nil {
				return fmt.Errorf("invalid --npc: %w", err)
			}
			return withStores(func(ctx context.Context, s *store.Stores) error {
				npc, err := s.Entities.GetNPC(ctx, nid)
				if err != nil {
					return err
				}
				if name == "" {
					name = npc.Name
				}
				b := &store.BotConfig{
					WorldID:   npc.WorldID,
					NPCID:     npc.ID,
					ServerID:  serverID,
					ChannelID: channelID,
					Active:    !inactive,
					Name:      name,
				}
				if err := s.Bots.Create(ctx, b); err != nil {
					return err
				}
				fmt.Println(b.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&npcID, "npc", "", "NPC ID (required)")
	cmd.Flags().StringVar(&serverID, "server", "", "Discord server (guild) ID (required)")
	cmd.Flags().StringVar(&channelID, "channel", "", "Discord channel ID (empty = whole server)")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: NPC name)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create without activating")
	cmd.MarkFlagRequired("npc")
	cmd.MarkFlagRequired("server")
	return cmd
}

func botsListCmd() *cobra.Command {
	var worldID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bot configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			wid := uuid.Nil
			if worldID != "" {
				var err error
				if wid, err = uuid.Parse(worldID); err != nil {
					return fmt.Errorf("invalid --world: %w", err)
				}
			}
			return withStores(func(ctx context.Context, s *store.Stores) error {
				bots, err := s.Bots.List(ctx, wid)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tNAME\tSERVER\tCHANNEL\tACTIVE\tNPC\n")
				for _, b := range bots {
					channel := b.ChannelID
					if b.IsServerWide() {
						channel = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", b.ID, b.Name, b.ServerID, channel, b.Active, b.NPCID)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&worldID, "world", "", "only this world")
	return cmd
}

func botsSetActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <bot-id>",
		Short: fmt.Sprintf("Mark a bot configuration %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid bot id: %w", err)
			}
			return withStores(func(ctx context.Context, s *store.Stores) error {
				return s.Bots.SetActive(ctx, id, active)
			})
		},
	}
}
