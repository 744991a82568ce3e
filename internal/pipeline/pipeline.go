// Package pipeline answers inbound mentions: it picks the NPC, rebuilds the
// channel context, generates the reply and delivers it.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/npcforge/npcforge/internal/bus"
	"github.com/npcforge/npcforge/internal/roleplay"
	"github.com/npcforge/npcforge/internal/store"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 64
)

// Result is the outcome of handling one inbound message.
type Result string

const (
	ResultDelivered   Result = "delivered"
	ResultNoBot       Result = "no_bot"       // no active configuration for the channel
	ResultNoNPC       Result = "no_npc"       // no candidate could be chosen
	ResultEmpty       Result = "empty"        // the model produced no text
	ResultUndelivered Result = "undelivered"  // delivery failed
	ResultRateLimited Result = "rate_limited" // channel exceeded its reply budget
	ResultError       Result = "error"
	ResultPanic       Result = "panic"
)

// Directory lists candidate configurations for a channel.
type Directory interface {
	FindCandidates(ctx context.Context, serverID, channelID string) ([]store.BotConfig, error)
}

// Resolver chooses one configuration among candidates.
type Resolver interface {
	Select(ctx context.Context, candidates []store.BotConfig, text, userID, channelID string) (*store.BotConfig, bool)
}

// Entities loads the NPC and world of a configuration.
type Entities interface {
	GetNPC(ctx context.Context, id uuid.UUID) (*store.NPC, error)
	GetWorld(ctx context.Context, id uuid.UUID) (*store.World, error)
}

// History rebuilds the conversation preceding a message.
type History interface {
	TurnsBefore(ctx context.Context, channelID, beforeID string, limit int) (iter.Seq[roleplay.Turn], error)
}

// Generator produces an NPC reply.
type Generator interface {
	Generate(ctx context.Context, bot *store.BotConfig, npc *store.NPC, world *store.World, history iter.Seq[roleplay.Turn], newMessage string) (string, error)
}

// Deliverer posts a reply as the NPC.
type Deliverer interface {
	Deliver(ctx context.Context, bot *store.BotConfig, npc *store.NPC, channelID, content string) bool
}

// Limiter gates replies per channel.
type Limiter interface {
	Allow(key string) bool
}

// Deps are the collaborators of a Pipeline. Limiter and Tracer are optional.
type Deps struct {
	Directory Directory
	Resolver  Resolver
	Entities  Entities
	History   History
	Generator Generator
	Deliverer Deliverer
	Limiter   Limiter
	Tracer    trace.Tracer
}

// Config tunes a Pipeline. Zero values fall back to the defaults.
type Config struct {
	Timeout       time.Duration
	MaxConcurrent int
	HistoryLimit  int
}

// Pipeline handles every inbound mention in its own goroutine.
type Pipeline struct {
	d   Deps
	cfg Config
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func New(d Deps, cfg Config) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if d.Tracer == nil {
		d.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Pipeline{d: d, cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

// Run consumes router until ctx is done, then waits for in-flight messages.
// At most MaxConcurrent messages are handled at once; the rest wait on the bus.
func (p *Pipeline) Run(ctx context.Context, router bus.MessageRouter) {
	slog.Info("pipeline: consumer started", "max_concurrent", p.cfg.MaxConcurrent, "timeout", p.cfg.Timeout)
	for {
		msg, ok := router.ConsumeInbound(ctx)
		if !ok {
			break
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.sem.Release(1)
			p.Handle(ctx, msg)
		}()
	}
	p.wg.Wait()
	slog.Info("pipeline: consumer stopped")
}

// Handle processes one message to completion. In-flight work is not cut
// short when ctx is cancelled; it is bounded by the pipeline timeout.
// Panics are recovered and reported as ResultPanic.
func (p *Pipeline) Handle(ctx context.Context, msg bus.InboundMessage) (res Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	ctx, span := p.d.Tracer.Start(ctx, "pipeline.handle", trace.WithAttributes(
		attribute.String("discord.server_id", msg.ServerID),
		attribute.String("discord.channel_id", msg.ChatID),
		attribute.String("discord.message_id", msg.MessageID),
	))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: panic recovered",
				"message_id", msg.MessageID, "panic", r, "stack", string(debug.Stack()))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			res = ResultPanic
		}
		span.SetAttributes(attribute.String("pipeline.result", string(res)))
		span.End()
		slog.Debug("pipeline: message handled",
			"message_id", msg.MessageID, "channel_id", msg.ChatID, "result", res, "elapsed", time.Since(start))
	}()

	res, err := p.handle(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("pipeline: message failed",
			"message_id", msg.MessageID, "server_id", msg.ServerID, "channel_id", msg.ChatID, "error", err)
	}
	return res
}

func (p *Pipeline) handle(ctx context.Context, msg bus.InboundMessage) (Result, error) {
	if p.d.Limiter != nil && !p.d.Limiter.Allow(msg.ChatID) {
		slog.Info("pipeline: channel rate limited", "channel_id", msg.ChatID)
		return ResultRateLimited, nil
	}

	candidates, err := p.d.Directory.FindCandidates(ctx, msg.ServerID, msg.ChatID)
	if err != nil {
		return ResultError, err
	}
	if len(candidates) == 0 {
		return ResultNoBot, nil
	}

	bot, ok := p.d.Resolver.Select(ctx, candidates, msg.Content, msg.SenderID, msg.ChatID)
	if !ok {
		return ResultNoNPC, nil
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("npc.bot_id", bot.ID.String()))

	var (
		npc     *store.NPC
		world   *store.World
		history iter.Seq[roleplay.Turn]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		npc, err = p.d.Entities.GetNPC(gctx, bot.NPCID)
		return err
	})
	g.Go(func() error {
		var err error
		world, err = p.d.Entities.GetWorld(gctx, bot.WorldID)
		return err
	})
	g.Go(func() error {
		h, err := p.d.History.TurnsBefore(gctx, msg.ChatID, msg.MessageID, p.cfg.HistoryLimit)
		if err != nil {
			// Answer without context rather than not at all.
			slog.Warn("pipeline: history unavailable", "channel_id", msg.ChatID, "error", err)
			return nil
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return ResultError, fmt.Errorf("load bot %s: %w", bot.ID, err)
	}

	reply, err := p.d.Generator.Generate(ctx, bot, npc, world, history, msg.Content)
	if err != nil {
		return ResultError, err
	}
	if reply == "" {
		slog.Info("pipeline: empty completion", "bot_id", bot.ID, "npc", npc.Name)
		return ResultEmpty, nil
	}

	if !p.d.Deliverer.Deliver(ctx, bot, npc, msg.ChatID, reply) {
		return ResultUndelivered, nil
	}
	slog.Info("pipeline: reply delivered", "bot_id", bot.ID, "npc", npc.Name, "channel_id", msg.ChatID)
	return ResultDelivered, nil
}
