package store

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PlacementScope selects which configurations the placement rule compares.
type PlacementScope string

const (
	// PlacementServer applies the rule to every active configuration of a server.
	PlacementServer PlacementScope = "server"
	// PlacementNPC applies the rule only among configurations of the same NPC,
	// so several NPCs may share a channel.
	PlacementNPC PlacementScope = "npc"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateBotConfig checks field-level constraints on a new configuration.
func ValidateBotConfig(b *BotConfig) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}
	return nil
}

// ValidateEntity checks field-level constraints on a world or NPC.
func ValidateEntity(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %T: %w", v, err)
	}
	return nil
}

// CheckPlacement verifies that candidate can be active next to the existing
// active configurations of the same server:
//   - at most one server-wide configuration,
//   - at most one configuration per channel,
//   - server-wide and channel-specific configurations exclude each other.
//
// existing may include candidate itself (matched by ID); it is skipped.
func CheckPlacement(scope PlacementScope, existing []BotConfig, candidate BotConfig) error {
	for _, e := range existing {
		if e.ID == candidate.ID || !e.Active || e.ServerID != candidate.ServerID {
			continue
		}
		if scope == PlacementNPC && e.NPCID != candidate.NPCID {
			continue
		}
		switch {
		case e.IsServerWide() && candidate.IsServerWide():
			return fmt.Errorf("%w: server %s already has server-wide bot %s", ErrPlacementConflict, e.ServerID, e.ID)
		case e.IsServerWide() || candidate.IsServerWide():
			return fmt.Errorf("%w: server %s mixes server-wide and channel bots (conflicts with %s)", ErrPlacementConflict, e.ServerID, e.ID)
		case e.ChannelID == candidate.ChannelID:
			return fmt.Errorf("%w: channel %s already has bot %s", ErrPlacementConflict, e.ChannelID, e.ID)
		}
	}
	return nil
}
