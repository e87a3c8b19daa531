package orchestrator

import (
	"strings"

	"dialogd/internal/conversation"
	"dialogd/pkg/types"
)

// PromptComposer turns a participant's state plus the new user input into
// the body handed to the model. Two interchangeable strategies exist
// because engine-side history handling has proven unreliable across model
// runtime versions; which one runs is a config choice, not a type
// hierarchy.
type PromptComposer interface {
	// Compose builds the request body from a snapshot and the new input.
	Compose(snap conversation.Snapshot, userInput string) string
	// Name identifies the strategy in config and logs.
	Name() string
}

// FlattenComposer rebuilds the full prompt client-side on every turn:
// system prompt, then the recorded history, then the new input. This is
// the default because it depends on nothing but the completion primitive.
type FlattenComposer struct{}

func (FlattenComposer) Name() string { return "flatten" }

func (FlattenComposer) Compose(snap conversation.Snapshot, userInput string) string {
	var b strings.Builder
	if snap.SystemPrompt != "" {
		b.WriteString(snap.SystemPrompt)
		b.WriteString("\n\n")
	}
	for _, turn := range snap.History {
		b.WriteString(roleLabel(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	b.WriteString(roleLabel(types.RoleUser))
	b.WriteString(": ")
	b.WriteString(userInput)
	b.WriteString("\n")
	b.WriteString(roleLabel(types.RoleAssistant))
	b.WriteString(":")
	return b.String()
}

func roleLabel(r types.Role) string {
	if r == types.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// NativeComposer hands the raw user input through unchanged, trusting the
// model runtime to incorporate history and system prompt on its side.
// Only safe when the target engine is proven to manage context correctly.
type NativeComposer struct{}

func (NativeComposer) Name() string { return "native" }

func (NativeComposer) Compose(_ conversation.Snapshot, userInput string) string {
	return userInput
}

// ComposerFor maps a config value to a strategy. Unknown or empty values
// fall back to flatten.
func ComposerFor(name string) PromptComposer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "native":
		return NativeComposer{}
	default:
		return FlattenComposer{}
	}
}
