package store

import (
	"context"

	"github.com/google/uuid"
)

// BotConfig binds one NPC persona to a Discord server, optionally scoped to
// a single channel. An empty ChannelID means server-wide.
type BotConfig struct {
	BaseModel
	WorldID   uuid.UUID `json:"world_id" db:"world_id" validate:"required"`
	NPCID     uuid.UUID `json:"npc_id" db:"npc_id" validate:"required"`
	ServerID  string    `json:"server_id" db:"server_id" validate:"required,numeric"`
	ChannelID string    `json:"channel_id,omitempty" db:"channel_id" validate:"omitempty,numeric"`
	Active    bool      `json:"active" db:"active"`
	Name      string    `json:"name" db:"name" validate:"required,max=100"`
}

// IsServerWide reports whether the configuration has no channel restriction.
func (b BotConfig) IsServerWide() bool { return b.ChannelID == "" }

// BotStore manages bot configurations.
type BotStore interface {
	// ListActiveForChannel returns active configurations of serverID whose
	// channel is channelID or which are server-wide. Order is unspecified.
	ListActiveForChannel(ctx context.Context, serverID, channelID string) ([]BotConfig, error)

	Get(ctx context.Context, id uuid.UUID) (*BotConfig, error)
	List(ctx context.Context, worldID uuid.UUID) ([]BotConfig, error)

	// Create validates placement against the active configurations of the
	// same server and inserts b. b.ID is assigned when nil.
	Create(ctx context.Context, b *BotConfig) error

	// SetActive toggles a configuration. Activation re-checks placement.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
