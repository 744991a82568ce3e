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

const botColumns = `id, world_id, npc_id, server_id, channel_id, active, name, created_at, updated_at`

// PGBotStore implements store.BotStore backed by Postgres.
type PGBotStore struct {
	db    *sql.DB
	scope store.PlacementScope
}

func NewPGBotStore(db *sql.DB, scope store.PlacementScope) *PGBotStore {
	return &PGBotStore{db: db, scope: scope}
}

func (s *PGBotStore) ListActiveForChannel(ctx context.Context, serverID, channelID string) ([]store.BotConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+botColumns+` FROM bot_configs
		 WHERE server_id = $1 AND active AND (channel_id = $2 OR channel_id = '')
		 ORDER BY created_at`, serverID, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBotRows(rows)
}

func (s *PGBotStore) Get(ctx context.Context, id uuid.UUID) (*store.BotConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bot_configs WHERE id = $1`, id)
	var b store.BotConfig
	if err := scanBot(row, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bot config %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func (s *PGBotStore) List(ctx context.Context, worldID uuid.UUID) ([]store.BotConfig, error) {
	q := `SELECT ` + botColumns + ` FROM bot_configs`
	var args []any
	if worldID != uuid.Nil {
		q += ` WHERE world_id = $1`
		args = append(args, worldID)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY server_id, created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBotRows(rows)
}

func (s *PGBotStore) Create(ctx context.Context, b *store.BotConfig) error {
	if b.ID == uuid.Nil {
		b.ID = store.GenNewID()
	}
	if err := store.ValidateBotConfig(b); err != nil {
		return err
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now

	return s.withServerLock(ctx, b.ServerID, func(tx *sql.Tx) error {
		if b.Active {
			if err := s.checkPlacement(ctx, tx, *b); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bot_configs (`+botColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			b.ID, b.WorldID, b.NPCID, b.ServerID, b.ChannelID, b.Active, b.Name, b.CreatedAt, b.UpdatedAt,
		)
		return err
	})
}

func (s *PGBotStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.withServerLock(ctx, b.ServerID, func(tx *sql.Tx) error {
		if active {
			b.Active = true
			if err := s.checkPlacement(ctx, tx, *b); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE bot_configs SET active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
		return err
	})
}

func (s *PGBotStore) checkPlacement(ctx context.Context, tx *sql.Tx, candidate store.BotConfig) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+botColumns+` FROM bot_configs WHERE server_id = $1 AND active`, candidate.ServerID)
	if err != nil {
		return err
	}
	defer rows.Close()
	existing, err := scanBotRows(rows)
	if err != nil {
		return err
	}
	return store.CheckPlacement(s.scope, existing, candidate)
}

// withServerLock serialises placement checks per server with a
// transaction-scoped advisory lock.
func (s *PGBotStore) withServerLock(ctx context.Context, serverID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "bot_configs:"+serverID); err != nil {
		return fmt.Errorf("lock server %s: %w", serverID, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner, b *store.BotConfig) error {
	return row.Scan(&b.ID, &b.WorldID, &b.NPCID, &b.ServerID, &b.ChannelID, &b.Active, &b.Name, &b.CreatedAt, &b.UpdatedAt)
}

func scanBotRows(rows *sql.Rows) ([]store.BotConfig, error) {
	var result []store.BotConfig
	for rows.Next() {
		var b store.BotConfig
		if err := scanBot(rows, &b); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
