package orchestrator

import (
	"strings"

	"dialogd/pkg/types"
)

// outputInstructions is the fixed format preamble tail appended to every
// system prompt. Terse first-person replies keep small models from
// narrating stage directions at the player.
const outputInstructions = "Stay in character at all times. " +
	"Answer in first person, in one or two short sentences. " +
	"Never narrate actions, never describe the scene, never speak for anyone else."

// BuildSystemPrompt assembles a participant's persona and the shared world
// knowledge into the system prompt fixed at context creation. Deterministic:
// the same identity and world always produce the same prompt.
func BuildSystemPrompt(id types.Identity, world types.World) string {
	var parts []string
	if id.Name != "" {
		head := "You are " + id.Name
		if id.Role != "" {
			head += ", " + id.Role
		}
		parts = append(parts, head+".")
	}
	if id.Persona != "" {
		parts = append(parts, id.Persona)
	}
	if id.Backstory != "" {
		parts = append(parts, id.Backstory)
	}
	if world.Setting != "" {
		parts = append(parts, "Setting: "+world.Setting)
	}
	if world.Lore != "" {
		parts = append(parts, world.Lore)
	}
	if world.Boundaries != "" {
		parts = append(parts, world.Boundaries)
	}
	parts = append(parts, outputInstructions)
	return strings.Join(parts, "\n")
}
