package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/npcforge/npcforge/internal/channels"
	"github.com/npcforge/npcforge/internal/config"
	"github.com/npcforge/npcforge/internal/store"
)

func npcsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npcs",
		Short: "Manage NPCs",
	}
	cmd.AddCommand(npcsCreateCmd())
	cmd.AddCommand(npcsListCmd())
	cmd.AddCommand(npcsPortraitCmd())
	return cmd
}

func npcsCreateCmd() *cobra.Command {
	var worldID, description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an NPC in a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wid, err := uuid.Parse(worldID)
			if err != nil {
				return fmt.Errorf("invalid --world: %w", err)
			}
			return withStores(func(ctx context.Context, s *store.Stores) error {
				if _, err := s.Entities.GetWorld(ctx, wid); err != nil {
					return err
				}
				n := &store.NPC{WorldID: wid, Name: args[0], Description: description}
				if err := s.Entities.CreateNPC(ctx, n); err != nil {
					return err
				}
				fmt.Println(n.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&worldID, "world", "", "world ID (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "character description used in prompts")
	cmd.MarkFlagRequired("world")
	return cmd
}

func npcsListCmd() *cobra.Command {
	var worldID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the NPCs of a world",
		RunE: func(cmd *cobra.Command, args []string) error {
			wid, err := uuid.Parse(worldID)
			if err != nil {
				return fmt.Errorf("invalid --world: %w", err)
			}
			return withStores(func(ctx context.Context, s *store.Stores) error {
				npcs, err := s.Entities.ListNPCs(ctx, wid)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tNAME\tPORTRAIT\tDESCRIPTION\n")
				for _, n := range npcs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Name, n.PortraitPath, channels.Truncate(n.Description, 50))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&worldID, "world", "", "world ID (required)")
	cmd.MarkFlagRequired("world")
	return cmd
}

func npcsPortraitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portrait <npc-id> <image-file>",
		Short: "Import a portrait image for an NPC",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid npc id: %w", err)
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := context.Background()

			if _, err := s.Entities.GetNPC(ctx, id); err != nil {
				return err
			}
			rel, err := newSigner(cfg).ImportPortrait(f, id, cfg.Assets.PortraitSize)
			if err != nil {
				return err
			}
			if err := s.Entities.SetNPCPortrait(ctx, id, rel); err != nil {
				return err
			}
			fmt.Printf("portrait stored at %s\n", filepath.Join(config.ExpandHome(cfg.Assets.Dir), filepath.FromSlash(rel)))
			return nil
		},
	}
}
