package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

type fakeBots map[uuid.UUID]store.BotConfig

func (f fakeBots) Get(_ context.Context, id uuid.UUID) (*store.BotConfig, error) {
	b, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

type fakeNPCs []store.NPC

func (f fakeNPCs) ListNPCs(context.Context, uuid.UUID) ([]store.NPC, error) { return f, nil }

type fakeDiscord struct{}

func (fakeDiscord) ChannelMessages(string, int, string, string, string, ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return []*discordgo.Message{
		{ID: "2", WebhookID: "w", Author: &discordgo.User{Username: "Grak"}, Content: "Hrm.", Timestamp: time.Unix(200, 0)},
		{ID: "1", Author: &discordgo.User{Username: "player"}, Content: "hi", Timestamp: time.Unix(100, 0)},
	}, nil
}

func (fakeDiscord) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return nil, nil
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status StatusFunc
		want   int
	}{
		{"no channels", nil, http.StatusOK},
		{"running", func() map[string]bool { return map[string]bool{"discord": true} }, http.StatusOK},
		{"stopped", func() map[string]bool { return map[string]bool{"discord": false} }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(":0", tt.status).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestResponsesHandler(t *testing.T) {
	botID := uuid.New()
	grak := store.NPC{BaseModel: store.BaseModel{ID: uuid.New()}, Name: "Grak"}
	h := NewResponsesHandler(
		fakeBots{botID: {BaseModel: store.BaseModel{ID: botID}, ServerID: "1", ChannelID: "2"}},
		fakeNPCs{grak},
		fakeDiscord{},
		"secret",
	)
	srv := NewServer(":0", nil, h.RegisterRoutes)

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"ok", "/v1/bots/" + botID.String() + "/responses", "Bearer secret", http.StatusOK},
		{"no token", "/v1/bots/" + botID.String() + "/responses", "", http.StatusUnauthorized},
		{"wrong token", "/v1/bots/" + botID.String() + "/responses", "Bearer nope", http.StatusUnauthorized},
		{"bad id", "/v1/bots/xyz/responses", "Bearer secret", http.StatusBadRequest},
		{"unknown bot", "/v1/bots/" + uuid.NewString() + "/responses", "Bearer secret", http.StatusNotFound},
		{"bad limit", "/v1/bots/" + botID.String() + "/responses?limit=0", "Bearer secret", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Responses []struct {
					MessageID string    `json:"message_id"`
					NPCID     uuid.UUID `json:"npc_id"`
				} `json:"responses"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body.Responses) != 1 || body.Responses[0].MessageID != "2" || body.Responses[0].NPCID != grak.ID {
				t.Errorf("responses = %+v", body.Responses)
			}
		})
	}
}
