package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/npcforge/npcforge/internal/channels"
	"github.com/npcforge/npcforge/internal/store"
)

// withStores opens the configured stores for a management command.
func withStores(fn func(ctx context.Context, s *store.Stores) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func worldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "Manage worlds",
	}
	cmd.AddCommand(worldsCreateCmd())
	cmd.AddCommand(worldsListCmd())
	return cmd
}

func worldsCreateCmd() *cobra.Command {
	var description, owner string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				w := &store.World{Name: args[0], Description: description, OwnerID: owner}
				if err := s.Entities.CreateWorld(ctx, w); err != nil {
					return err
				}
				fmt.Println(w.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "world description used in prompts")
	cmd.Flags().StringVar(&owner, "owner", "", "owner identifier")
	return cmd
}

func worldsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List worlds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				worlds, err := s.Entities.ListWorlds(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tNAME\tDESCRIPTION\n")
				for _, wd := range worlds {
					fmt.Fprintf(w, "%s\t%s\t%s\n", wd.ID, wd.Name, channels.Truncate(wd.Description, 50))
				}
				return w.Flush()
			})
		},
	}
}
