package store

import (
	"context"

	"github.com/google/uuid"
)

// World is a narrative setting owning NPCs and bot configurations.
type World struct {
	BaseModel
	Name        string `json:"name" db:"name" validate:"required,max=200"`
	Description string `json:"description" db:"description"`
	OwnerID     string `json:"owner_id,omitempty" db:"owner_id"`
}

// NPC is a character profile owned by a World.
type NPC struct {
	BaseModel
	WorldID      uuid.UUID `json:"world_id" db:"world_id" validate:"required"`
	Name         string    `json:"name" db:"name" validate:"required,max=80"`
	Description  string    `json:"description" db:"description"`
	PortraitPath string    `json:"portrait_path,omitempty" db:"portrait_path"`
}

// EntityStore reads and writes worlds and NPCs.
// Get* methods return ErrNotFound (wrapped) when the row does not exist.
type EntityStore interface {
	GetWorld(ctx context.Context, id uuid.UUID) (*World, error)
	ListWorlds(ctx context.Context) ([]World, error)
	CreateWorld(ctx context.Context, w *World) error

	GetNPC(ctx context.Context, id uuid.UUID) (*NPC, error)
	ListNPCs(ctx context.Context, worldID uuid.UUID) ([]NPC, error)
	CreateNPC(ctx context.Context, n *NPC) error
	SetNPCPortrait(ctx context.Context, id uuid.UUID, path string) error
}
