package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/channels/discord"
	"github.com/npcforge/npcforge/internal/store"
)

// BotGetter loads a bot configuration.
type BotGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*store.BotConfig, error)
}

// NPCLister lists the NPCs of a world.
type NPCLister interface {
	ListNPCs(ctx context.Context, worldID uuid.UUID) ([]store.NPC, error)
}

// ResponsesHandler serves the recent replies posted for a bot configuration.
type ResponsesHandler struct {
	bots    BotGetter
	npcs    NPCLister
	discord discord.ChannelLister
	token   string
}

func NewResponsesHandler(bots BotGetter, npcs NPCLister, api discord.ChannelLister, token string) *ResponsesHandler {
	return &ResponsesHandler{bots: bots, npcs: npcs, discord: api, token: token}
}

// RegisterRoutes registers the bot activity routes on the given mux.
func (h *ResponsesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/bots/{id}/responses", authMiddleware(h.token, h.handleList))
}

func (h *ResponsesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bot id"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	bot, err := h.bots.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bot not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	npcs, err := h.npcs.ListNPCs(r.Context(), bot.WorldID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out, err := discord.RecentResponses(r.Context(), h.discord, bot, npcs, limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if out == nil {
		out = []discord.RecentResponse{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": out})
}
