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

// BotStore implements store.BotStore on SQLite.
type BotStore struct {
	db    *sqlx.DB
	scope store.PlacementScope
}

func NewBotStore(db *sqlx.DB, scope store.PlacementScope) *BotStore {
	return &BotStore{db: db, scope: scope}
}

func (s *BotStore) ListActiveForChannel(ctx context.Context, serverID, channelID string) ([]store.BotConfig, error) {
	var out []store.BotConfig
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM bot_configs
		 WHERE server_id = ? AND active = 1 AND (channel_id = ? OR channel_id = '')
		 ORDER BY created_at`, serverID, channelID)
	return out, err
}

func (s *BotStore) Get(ctx context.Context, id uuid.UUID) (*store.BotConfig, error) {
	var b store.BotConfig
	if err := s.db.GetContext(ctx, &b, `SELECT * FROM bot_configs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bot config %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func (s *BotStore) List(ctx context.Context, worldID uuid.UUID) ([]store.BotConfig, error) {
	var out []store.BotConfig
	if worldID == uuid.Nil {
		err := s.db.SelectContext(ctx, &out, `SELECT * FROM bot_configs ORDER BY server_id, created_at`)
		return out, err
	}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM bot_configs WHERE world_id = ? ORDER BY server_id, created_at`, worldID)
	return out, err
}

func (s *BotStore) Create(ctx context.Context, b *store.BotConfig) error {
	if b.ID == uuid.Nil {
		b.ID = store.GenNewID()
	}
	if err := store.ValidateBotConfig(b); err != nil {
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if b.Active {
			if err := s.checkPlacement(ctx, tx, *b); err != nil {
				return err
			}
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO bot_configs (id, world_id, npc_id, server_id, channel_id, active, name, created_at, updated_at)
			 VALUES (:id, :world_id, :npc_id, :server_id, :channel_id, :active, :name, :created_at, :updated_at)`, b)
		return err
	})
}

func (s *BotStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var b store.BotConfig
		if err := tx.GetContext(ctx, &b, `SELECT * FROM bot_configs WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("bot config %s: %w", id, store.ErrNotFound)
			}
			return err
		}
		if active {
			b.Active = true
			if err := s.checkPlacement(ctx, tx, b); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE bot_configs SET active = ?, updated_at = ? WHERE id = ?`, active, time.Now().UTC(), id)
		return err
	})
}

func (s *BotStore) checkPlacement(ctx context.Context, tx *sqlx.Tx, candidate store.BotConfig) error {
	var existing []store.BotConfig
	if err := tx.SelectContext(ctx, &existing,
		`SELECT * FROM bot_configs WHERE server_id = ? AND active = 1`, candidate.ServerID); err != nil {
		return err
	}
	return store.CheckPlacement(s.scope, existing, candidate)
}

func (s *BotStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
