package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

func newTestStores(t *testing.T, scope store.PlacementScope) *store.Stores {
	t.Helper()
	s, err := NewSQLiteStores(store.StoreConfig{
		SQLitePath:     filepath.Join(t.TempDir(), "npcforge.db"),
		PlacementScope: scope,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStores: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedWorld(t *testing.T, s *store.Stores, npcNames ...string) (*store.World, []store.NPC) {
	t.Helper()
	ctx := context.Background()
	w := &store.World{Name: "Eldoria", Description: "A land of floating isles"}
	if err := s.Entities.CreateWorld(ctx, w); err != nil {
		t.Fatalf("CreateWorld: %v", err)
	}
	var npcs []store.NPC
	for _, name := range npcNames {
		n := &store.NPC{WorldID: w.ID, Name: name, Description: name + " of Eldoria"}
		if err := s.Entities.CreateNPC(ctx, n); err != nil {
			t.Fatalf("CreateNPC(%s): %v", name, err)
		}
		npcs = append(npcs, *n)
	}
	return w, npcs
}

func TestEntityRoundTrip(t *testing.T) {
	s := newTestStores(t, store.PlacementServer)
	ctx := context.Background()
	w, npcs := seedWorld(t, s, "Aria", "Borin")

	got, err := s.Entities.GetWorld(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWorld: %v", err)
	}
	if got.Name != "Eldoria" || got.Description != w.Description {
		t.Errorf("GetWorld = %+v", got)
	}

	list, err := s.Entities.ListNPCs(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListNPCs: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Aria" || list[1].Name != "Borin" {
		t.Errorf("ListNPCs = %+v", list)
	}

	if err := s.Entities.SetNPCPortrait(ctx, npcs[0].ID, "portraits/aria.png"); err != nil {
		t.Fatalf("SetNPCPortrait: %v", err)
	}
	n, err := s.Entities.GetNPC(ctx, npcs[0].ID)
	if err != nil {
		t.Fatalf("GetNPC: %v", err)
	}
	if n.PortraitPath != "portraits/aria.png" {
		t.Errorf("PortraitPath = %q", n.PortraitPath)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestStores(t, store.PlacementServer)
	ctx := context.Background()
	id := uuid.New()

	if _, err := s.Entities.GetWorld(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetWorld err = %v, want ErrNotFound", err)
	}
	if _, err := s.Entities.GetNPC(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetNPC err = %v, want ErrNotFound", err)
	}
	if _, err := s.Bots.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if err := s.Entities.SetNPCPortrait(ctx, id, "x.png"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetNPCPortrait err = %v, want ErrNotFound", err)
	}
}

func TestBotPlacementAndLookup(t *testing.T) {
	s := newTestStores(t, store.PlacementServer)
	ctx := context.Background()
	w, npcs := seedWorld(t, s, "Aria", "Borin")

	chanBot := &store.BotConfig{WorldID: w.ID, NPCID: npcs[0].ID, ServerID: "100", ChannelID: "200", Active: true, Name: "aria-tavern"}
	if err := s.Bots.Create(ctx, chanBot); err != nil {
		t.Fatalf("Create channel bot: %v", err)
	}

	dup := &store.BotConfig{WorldID: w.ID, NPCID: npcs[1].ID, ServerID: "100", ChannelID: "200", Active: true, Name: "borin-tavern"}
	if err := s.Bots.Create(ctx, dup); !errors.Is(err, store.ErrPlacementConflict) {
		t.Fatalf("duplicate channel err = %v, want ErrPlacementConflict", err)
	}

	wide := &store.BotConfig{WorldID: w.ID, NPCID: npcs[1].ID, ServerID: "100", Active: true, Name: "borin-wide"}
	if err := s.Bots.Create(ctx, wide); !errors.Is(err, store.ErrPlacementConflict) {
		t.Fatalf("server-wide next to channel bot err = %v, want ErrPlacementConflict", err)
	}

	// Inactive configurations are outside the rule until activated.
	wide.Active = false
	if err := s.Bots.Create(ctx, wide); err != nil {
		t.Fatalf("Create inactive: %v", err)
	}
	if err := s.Bots.SetActive(ctx, wide.ID, true); !errors.Is(err, store.ErrPlacementConflict) {
		t.Fatalf("SetActive err = %v, want ErrPlacementConflict", err)
	}

	got, err := s.Bots.ListActiveForChannel(ctx, "100", "200")
	if err != nil {
		t.Fatalf("ListActiveForChannel: %v", err)
	}
	if len(got) != 1 || got[0].ID != chanBot.ID {
		t.Fatalf("ListActiveForChannel = %+v, want only %s", got, chanBot.ID)
	}

	if err := s.Bots.SetActive(ctx, chanBot.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := s.Bots.SetActive(ctx, wide.ID, true); err != nil {
		t.Fatalf("activate server-wide: %v", err)
	}
	got, err = s.Bots.ListActiveForChannel(ctx, "100", "999")
	if err != nil {
		t.Fatalf("ListActiveForChannel: %v", err)
	}
	if len(got) != 1 || got[0].ID != wide.ID || !got[0].IsServerWide() {
		t.Fatalf("ListActiveForChannel = %+v, want server-wide %s", got, wide.ID)
	}

	all, err := s.Bots.List(ctx, w.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List len = %d, want 2", len(all))
	}
}

func TestBotValidation(t *testing.T) {
	s := newTestStores(t, store.PlacementServer)
	ctx := context.Background()
	w, npcs := seedWorld(t, s, "Aria")

	tests := []struct {
		name string
		bot  store.BotConfig
	}{
		{"missing name", store.BotConfig{WorldID: w.ID, NPCID: npcs[0].ID, ServerID: "1"}},
		{"missing server", store.BotConfig{WorldID: w.ID, NPCID: npcs[0].ID, Name: "x"}},
		{"missing npc", store.BotConfig{WorldID: w.ID, ServerID: "1", Name: "x"}},
		{"non-numeric channel", store.BotConfig{WorldID: w.ID, NPCID: npcs[0].ID, ServerID: "1", ChannelID: "general", Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.bot
			if err := s.Bots.Create(ctx, &b); err == nil {
				t.Errorf("Create(%+v) succeeded, want validation error", tt.bot)
			}
		})
	}
}
