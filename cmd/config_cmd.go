package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			masked := cfg.MaskedCopy()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(masked); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if masked.Database.PostgresDSN != "" {
				fmt.Printf("postgres dsn: %s\n", masked.Database.PostgresDSN)
			}
			return nil
		},
	})
	return cmd
}
