// Package roleplay turns a world, an NPC and a conversation into an
// in-character reply from a language model.
package roleplay

import "github.com/npcforge/npcforge/internal/providers"

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of reconstructed channel history.
type Turn struct {
	Role    Role
	Content string
}

func (t Turn) message() providers.Message {
	role := providers.RoleUser
	if t.Role == RoleAssistant {
		role = providers.RoleAssistant
	}
	return providers.Message{Role: role, Content: t.Content}
}
