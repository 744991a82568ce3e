package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/npcforge/npcforge/internal/config"
	"github.com/npcforge/npcforge/internal/store/migrations"
)

// Version is set at build time via -ldflags "-X github.com/npcforge/npcforge/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "npcforge",
	Short: "npcforge: world NPCs that answer in Discord",
	Long:  "npcforge listens for bot mentions in Discord, picks the NPC that should answer, and replies in character through per-channel webhooks.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
		// .env is optional; real environment variables win.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not read .env", "error", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json5 or $NPCFORGE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(worldsCmd())
	rootCmd.AddCommand(npcsCmd())
	rootCmd.AddCommand(botsCmd())
	rootCmd.AddCommand(inviteCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("npcforge %s (schema %d)\n", Version, migrations.RequiredSchemaVersion)
		},
	}
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// resolveConfigPath returns the config path and whether the operator named
// it through --config or NPCFORGE_CONFIG.
func resolveConfigPath() (string, bool) {
	if cfgFile != "" {
		return cfgFile, true
	}
	if v := os.Getenv("NPCFORGE_CONFIG"); v != "" {
		return v, true
	}
	return "config.json5", false
}

func loadConfig() (*config.Config, error) {
	load := config.Load
	path, explicit := resolveConfigPath()
	if explicit {
		load = config.LoadExisting
	}
	cfg, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
