package cmd

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/npcforge/npcforge/internal/assets"
	"github.com/npcforge/npcforge/internal/bus"
	"github.com/npcforge/npcforge/internal/channels"
	"github.com/npcforge/npcforge/internal/channels/discord"
	"github.com/npcforge/npcforge/internal/config"
	httpapi "github.com/npcforge/npcforge/internal/http"
	"github.com/npcforge/npcforge/internal/pipeline"
	"github.com/npcforge/npcforge/internal/roleplay"
	"github.com/npcforge/npcforge/internal/routing"
	"github.com/npcforge/npcforge/internal/tracing"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer mentions (default command)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Discord.Token == "" {
		slog.Error("NPCFORGE_DISCORD_TOKEN is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown", "error", err)
		}
	}()

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to create provider", "error", err)
		os.Exit(1)
	}

	msgBus := bus.New(cfg.Pipeline.BusBuffer)
	dc, err := discord.New(cfg.Discord, msgBus)
	if err != nil {
		slog.Error("failed to create discord channel", "error", err)
		os.Exit(1)
	}
	channelMgr := channels.NewManager()
	channelMgr.RegisterChannel(dc.Name(), dc)

	signer := newSigner(cfg)
	session := dc.Session()

	p := pipeline.New(pipeline.Deps{
		Directory: routing.NewDirectory(stores.Bots),
		Resolver:  routing.NewResolver(stores.Entities, routing.NewRecency(cfg.Routing.RecencyCacheSize)),
		Entities:  stores.Entities,
		History:   discord.NewHistoryBuilder(session, dc.BotUserID, cfg.Discord.HistoryLimit),
		Generator: roleplay.NewGenerator(provider, roleplay.GeneratorConfig{
			Model:       cfg.Model.Model,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
		}),
		Deliverer: discord.NewDeliverer(session, signer, discord.DelivererConfig{
			Prefix:    cfg.Discord.WebhookPrefix,
			AvatarTTL: cfg.Assets.URLTTL(),
		}),
		Limiter: channels.NewChannelRateLimiter(cfg.Pipeline.RateLimitPerMinute, cfg.Pipeline.RateLimitBurst),
		Tracer:  tracing.Tracer(),
	}, pipeline.Config{
		Timeout:       cfg.Pipeline.Timeout(),
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
		HistoryLimit:  cfg.Discord.HistoryLimit,
	})

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Run(gctx, msgBus)
		return nil
	})
	if cfg.HTTP.Enabled {
		responses := httpapi.NewResponsesHandler(stores.Bots, stores.Entities, session, cfg.HTTP.Token)
		srv := httpapi.NewServer(cfg.HTTP.Addr(), channelMgr.GetStatus,
			responses.RegisterRoutes,
			func(mux *http.ServeMux) { mux.Handle("GET /assets/{path...}", signer.Handler()) },
		)
		g.Go(func() error { return srv.Run(gctx) })
	}

	slog.Info("npcforge running", "version", Version, "mode", cfg.Database.Mode, "provider", provider.Name())
	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
	}

	channelMgr.StopAll(context.Background())
	slog.Info("npcforge stopped", "dropped_messages", msgBus.Dropped())
}

// newSigner builds the portrait URL signer. Without a configured key a
// random one is generated, so signed URLs only survive until restart.
func newSigner(cfg *config.Config) *assets.Signer {
	key := []byte(cfg.Assets.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
		slog.Warn("NPCFORGE_ASSET_SIGNING_KEY not set, using an ephemeral key")
	}
	return assets.NewSigner(config.ExpandHome(cfg.Assets.Dir), cfg.Assets.BaseURL, key)
}
