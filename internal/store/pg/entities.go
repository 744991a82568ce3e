package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/npcforge/npcforge/internal/store"
)

// PGEntityStore implements store.EntityStore backed by Postgres.
type PGEntityStore struct {
	db *sql.DB
}

func NewPGEntityStore(db *sql.DB) *PGEntityStore {
	return &PGEntityStore{db: db}
}

func (s *PGEntityStore) GetWorld(ctx context.Context, id uuid.UUID) (*store.World, error) {
	var w store.World
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at FROM worlds WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Description, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("world %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PGEntityStore) ListWorlds(ctx context.Context) ([]store.World, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at FROM worlds ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.World
	for rows.Next() {
		var w store.World
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *PGEntityStore) CreateWorld(ctx context.Context, w *store.World) error {
	if w.ID == uuid.Nil {
		w.ID = store.GenNewID()
	}
	if err := store.ValidateEntity(w); err != nil {
		return err
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO worlds (id, name, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.Name, w.Description, w.OwnerID, w.CreatedAt, w.UpdatedAt)
	return err
}

func (s *PGEntityStore) GetNPC(ctx context.Context, id uuid.UUID) (*store.NPC, error) {
	var n store.NPC
	err := s.db.QueryRowContext(ctx,
		`SELECT id, world_id, name, description, portrait_path, created_at, updated_at FROM npcs WHERE id = $1`, id,
	).Scan(&n.ID, &n.WorldID, &n.Name, &n.Description, &n.PortraitPath, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("npc %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PGEntityStore) ListNPCs(ctx context.Context, worldID uuid.UUID) ([]store.NPC, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, world_id, name, description, portrait_path, created_at, updated_at
		 FROM npcs WHERE world_id = $1 ORDER BY name`, worldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.NPC
	for rows.Next() {
		var n store.NPC
		if err := rows.Scan(&n.ID, &n.WorldID, &n.Name, &n.Description, &n.PortraitPath, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PGEntityStore) CreateNPC(ctx context.Context, n *store.NPC) error {
	if n.ID == uuid.Nil {
		n.ID = store.GenNewID()
	}
	if err := store.ValidateEntity(n); err != nil {
		return err
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO npcs (id, world_id, name, description, portrait_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.WorldID, n.Name, n.Description, n.PortraitPath, n.CreatedAt, n.UpdatedAt)
	return err
}

func (s *PGEntityStore) SetNPCPortrait(ctx context.Context, id uuid.UUID, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE npcs SET portrait_path = $1, updated_at = $2 WHERE id = $3`, path, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("npc %s: %w", id, store.ErrNotFound)
	}
	return nil
}
