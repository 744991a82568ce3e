package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

type fakeNPCs map[uuid.UUID]*store.NPC

func (f fakeNPCs) GetNPC(_ context.Context, id uuid.UUID) (*store.NPC, error) {
	if n, ok := f[id]; ok {
		return n, nil
	}
	return nil, store.ErrNotFound
}

type fakeBots struct {
	bots []store.BotConfig
	err  error
}

func (f fakeBots) ListActiveForChannel(_ context.Context, serverID, channelID string) ([]store.BotConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.BotConfig
	for _, b := range f.bots {
		if b.ServerID == serverID && (b.ChannelID == channelID || b.ChannelID == "") {
			out = append(out, b)
		}
	}
	return out, nil
}

// fixture builds one bot configuration per NPC name, all in server "s".
func fixture(names ...string) ([]store.BotConfig, fakeNPCs) {
	npcs := fakeNPCs{}
	var bots []store.BotConfig
	for i, name := range names {
		npc := &store.NPC{BaseModel: store.BaseModel{ID: uuid.New()}, Name: name}
		npcs[npc.ID] = npc
		bots = append(bots, store.BotConfig{
			BaseModel: store.BaseModel{ID: uuid.New()},
			NPCID:     npc.ID,
			ServerID:  "s",
			ChannelID: []string{"c", ""}[i%2],
			Active:    true,
			Name:      name,
		})
	}
	return bots, npcs
}

func TestFindCandidatesOrder(t *testing.T) {
	wide := store.BotConfig{BaseModel: store.BaseModel{ID: uuid.New()}, ServerID: "s", Active: true}
	chanBot := store.BotConfig{BaseModel: store.BaseModel{ID: uuid.New()}, ServerID: "s", ChannelID: "c", Active: true}
	inactive := store.BotConfig{BaseModel: store.BaseModel{ID: uuid.New()}, ServerID: "s", ChannelID: "c"}
	other := store.BotConfig{BaseModel: store.BaseModel{ID: uuid.New()}, ServerID: "s", ChannelID: "d", Active: true}

	d := NewDirectory(fakeBots{bots: []store.BotConfig{wide, inactive, chanBot, other, wide}})
	got, err := d.FindCandidates(context.Background(), "s", "c")
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 2 || got[0].ID != chanBot.ID || got[1].ID != wide.ID {
		t.Fatalf("FindCandidates = %v, want [channel, server-wide]", ids(got))
	}

	got, err = d.FindCandidates(context.Background(), "unknown", "c")
	if err != nil || len(got) != 0 {
		t.Errorf("FindCandidates(unknown) = %v, %v; want empty", got, err)
	}
}

func TestFindCandidatesError(t *testing.T) {
	boom := errors.New("db down")
	d := NewDirectory(fakeBots{err: boom})
	if _, err := d.FindCandidates(context.Background(), "s", "c"); !errors.Is(err, boom) {
		t.Errorf("FindCandidates err = %v, want wrapped %v", err, boom)
	}
}

func TestSelectByName(t *testing.T) {
	bots, npcs := fixture("Grak", "Lyra")
	reversed := []store.BotConfig{bots[1], bots[0]}

	tests := []struct {
		name       string
		candidates []store.BotConfig
		text       string
		want       uuid.UUID
	}{
		{"whole word", bots, "hey Grak, what news?", bots[0].ID},
		{"whole word reversed order", reversed, "hey Grak, what news?", bots[0].ID},
		{"case insensitive", reversed, "LYRA sing for us", bots[1].ID},
		{"whole word beats substring", bots, "Grakkin asks Lyra", bots[1].ID},
		{"substring fallback", reversed, "the grakkens are coming", bots[0].ID},
		{"no match first candidate", reversed, "Hi there!", bots[1].ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(npcs, NewRecency(16))
			got, ok := r.Select(context.Background(), tt.candidates, tt.text, "u", "c")
			if !ok || got.ID != tt.want {
				t.Errorf("Select(%q) = %v, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestSelectNameWithMetacharacters(t *testing.T) {
	bots, npcs := fixture("Dr. Who?", "Lyra")
	r := NewResolver(npcs, nil)
	got, ok := r.Select(context.Background(), []store.BotConfig{bots[1], bots[0]}, "ask dr. who? about it", "u", "c")
	if !ok || got.ID != bots[0].ID {
		t.Errorf("Select = %v, want %s", got, bots[0].ID)
	}
}

func TestSelectEmpty(t *testing.T) {
	r := NewResolver(fakeNPCs{}, nil)
	if got, ok := r.Select(context.Background(), nil, "Grak", "u", "c"); ok || got != nil {
		t.Errorf("Select(nil) = %v, %v; want none", got, ok)
	}
}

func TestSelectSingleCandidateSkipsLookupAndCaches(t *testing.T) {
	bots, _ := fixture("Grak")
	rec := NewRecency(16)
	r := NewResolver(fakeNPCs{}, rec) // lookup would fail
	got, ok := r.Select(context.Background(), bots, "anything", "u", "c")
	if !ok || got.ID != bots[0].ID {
		t.Fatalf("Select = %v, want %s", got, bots[0].ID)
	}
	if id, ok := rec.Get("u", "c"); !ok || id != bots[0].ID {
		t.Errorf("recency = %s,%v; want %s", id, ok, bots[0].ID)
	}
}

func TestSelectSkipsFailedLookups(t *testing.T) {
	bots, npcs := fixture("Grak", "Lyra")
	delete(npcs, bots[0].NPCID)
	r := NewResolver(npcs, nil)
	got, ok := r.Select(context.Background(), bots, "Lyra?", "u", "c")
	if !ok || got.ID != bots[1].ID {
		t.Errorf("Select = %v, want %s", got, bots[1].ID)
	}
}

func TestSelectRecency(t *testing.T) {
	bots, npcs := fixture("Grak", "Lyra", "Mira")
	ctx := context.Background()
	rec := NewRecency(16)
	r := NewResolver(npcs, rec)

	if got, _ := r.Select(ctx, bots, "Lyra, a word", "u", "c"); got.ID != bots[1].ID {
		t.Fatalf("first Select = %s, want Lyra", got.ID)
	}
	if got, _ := r.Select(ctx, bots, "and then?", "u", "c"); got.ID != bots[1].ID {
		t.Errorf("ambiguous Select = %s, want cached Lyra", got.ID)
	}
	// Another user in the same channel has no history.
	if got, _ := r.Select(ctx, bots, "and then?", "v", "c"); got.ID != bots[0].ID {
		t.Errorf("other user Select = %s, want first candidate", got.ID)
	}

	// Lyra is deactivated and drops out of the candidate list.
	remaining := []store.BotConfig{bots[2], bots[0]}
	if got := r.choose(ctx, remaining, "and then?", "u", "c"); got.ID != bots[2].ID {
		t.Errorf("choose after deactivation = %s, want first remaining %s", got.ID, bots[2].ID)
	}
	if _, ok := rec.Get("u", "c"); ok {
		t.Errorf("stale recency entry not evicted")
	}

	rec.Set("u", "c", bots[1].ID)
	got, _ := r.Select(ctx, remaining, "and then?", "u", "c")
	if got.ID != bots[2].ID {
		t.Errorf("Select after deactivation = %s, want first remaining %s", got.ID, bots[2].ID)
	}
	if id, _ := rec.Get("u", "c"); id != bots[2].ID {
		t.Errorf("recency = %s, want overwritten with %s", id, bots[2].ID)
	}
}

func TestSelectConcurrent(t *testing.T) {
	bots, npcs := fixture("Grak", "Lyra")
	r := NewResolver(npcs, NewRecency(4))
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text := []string{"Grak!", "Lyra!", "hm"}[i%3]
			if _, ok := r.Select(context.Background(), bots, text, "u", "c"); !ok {
				t.Errorf("Select(%q) found nothing", text)
			}
		}()
	}
	wg.Wait()
}

func TestRecencyBounded(t *testing.T) {
	rec := NewRecency(2)
	rec.Set("a", "c", uuid.New())
	rec.Set("b", "c", uuid.New())
	rec.Set("c", "c", uuid.New())
	if rec.Len() != 2 {
		t.Errorf("Len = %d, want 2", rec.Len())
	}
	if _, ok := rec.Get("a", "c"); ok {
		t.Errorf("oldest entry still present")
	}
}

func ids(bs []store.BotConfig) []uuid.UUID {
	out := make([]uuid.UUID, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}
