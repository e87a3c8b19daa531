package orchestrator

import (
	"testing"

	"dialogd/internal/conversation"
	"dialogd/pkg/types"
)

func TestFlattenComposer(t *testing.T) {
	snap := conversation.Snapshot{
		SystemPrompt: "You are Greta.",
		History: []types.Turn{
			{Role: types.RoleUser, Text: "Hello."},
			{Role: types.RoleAssistant, Text: "What'll it be?"},
		},
	}
	got := FlattenComposer{}.Compose(snap, "An ale, please.")
	want := "You are Greta.\n\n" +
		"User: Hello.\n" +
		"Assistant: What'll it be?\n" +
		"User: An ale, please.\n" +
		"Assistant:"
	if got != want {
		t.Fatalf("composed prompt:\n%q\nwant:\n%q", got, want)
	}
}

func TestFlattenComposerNoPromptNoHistory(t *testing.T) {
	got := FlattenComposer{}.Compose(conversation.Snapshot{}, "Hi.")
	want := "User: Hi.\nAssistant:"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNativeComposerPassesInputThrough(t *testing.T) {
	snap := conversation.Snapshot{
		SystemPrompt: "ignored",
		History:      []types.Turn{{Role: types.RoleUser, Text: "ignored"}},
	}
	if got := (NativeComposer{}).Compose(snap, "Hi."); got != "Hi." {
		t.Fatalf("got %q", got)
	}
}

func TestComposerFor(t *testing.T) {
	if ComposerFor("native").Name() != "native" {
		t.Fatalf("native not selected")
	}
	for _, v := range []string{"", "flatten", "FLATTEN", "bogus"} {
		if ComposerFor(v).Name() != "flatten" {
			t.Fatalf("%q did not select flatten", v)
		}
	}
}
