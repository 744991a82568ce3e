package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/npcforge/npcforge/internal/store"
)

// EntityStore implements store.EntityStore on SQLite.
type EntityStore struct {
	db *sqlx.DB
}

func NewEntityStore(db *sqlx.DB) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) GetWorld(ctx context.Context, id uuid.UUID) (*store.World, error) {
	var w store.World
	if err := s.db.GetContext(ctx, &w, `SELECT * FROM worlds WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("world %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &w, nil
}

func (s *EntityStore) ListWorlds(ctx context.Context) ([]store.World, error) {
	var out []store.World
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM worlds ORDER BY name`)
	return out, err
}

func (s *EntityStore) CreateWorld(ctx context.Context, w *store.World) error {
	if w.ID == uuid.Nil {
		w.ID = store.GenNewID()
	}
	if err := store.ValidateEntity(w); err != nil {
		return err
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO worlds (id, name, description, owner_id, created_at, updated_at)
		 VALUES (:id, :name, :description, :owner_id, :created_at, :updated_at)`, w)
	return err
}

func (s *EntityStore) GetNPC(ctx context.Context, id uuid.UUID) (*store.NPC, error) {
	var n store.NPC
	if err := s.db.GetContext(ctx, &n, `SELECT * FROM npcs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("npc %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &n, nil
}

func (s *EntityStore) ListNPCs(ctx context.Context, worldID uuid.UUID) ([]store.NPC, error) {
	var out []store.NPC
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM npcs WHERE world_id = ? ORDER BY name`, worldID)
	return out, err
}

func (s *EntityStore) CreateNPC(ctx context.Context, n *store.NPC) error {
	if n.ID == uuid.Nil {
		n.ID = store.GenNewID()
	}
	if err := store.ValidateEntity(n); err != nil {
		return err
	}
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO npcs (id, world_id, name, description, portrait_path, created_at, updated_at)
		 VALUES (:id, :world_id, :name, :description, :portrait_path, :created_at, :updated_at)`, n)
	return err
}

func (s *EntityStore) SetNPCPortrait(ctx context.Context, id uuid.UUID, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE npcs SET portrait_path = ?, updated_at = ? WHERE id = ?`, path, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("npc %s: %w", id, store.ErrNotFound)
	}
	return nil
}
