package roleplay

import (
	"strings"

	"github.com/npcforge/npcforge/internal/store"
)

// SystemPrompt describes who the model plays and where.
func SystemPrompt(npc *store.NPC, world *store.World) string {
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(npc.Name)
	sb.WriteString(", a character in a role-playing game set in the world of ")
	sb.WriteString(world.Name)
	sb.WriteString(".\n\n")

	if d := strings.TrimSpace(world.Description); d != "" {
		sb.WriteString("World Context:\n")
		sb.WriteString(d)
		sb.WriteString("\n\n")
	}
	if d := strings.TrimSpace(npc.Description); d != "" {
		sb.WriteString("Character Description:\n")
		sb.WriteString(d)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Stay in character as ")
	sb.WriteString(npc.Name)
	sb.WriteString(". Respond naturally and engagingly to the user's message, keeping in mind the world context ")
	sb.WriteString("and your character's place within it. Keep responses concise (1-3 sentences typically, ")
	sb.WriteString("but can be longer if the conversation warrants it). Be authentic to your character's ")
	sb.WriteString("personality, background, and the world they inhabit.")
	return sb.String()
}
