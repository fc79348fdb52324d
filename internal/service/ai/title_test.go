package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		`"Weekend Hiking Plans"`:        "Weekend Hiking Plans",
		"Title: Job Interview Nerves.":  "Job Interview Nerves",
		"  Birthday Ideas!\nExtra line": "Birthday Ideas",
		"**Coffee Chat**":               "Coffee Chat",
		"   ":                           DefaultTitle,
		"\"\"":                          DefaultTitle,
	}
	for raw, want := range cases {
		if got := CleanTitle(raw); got != want {
			t.Fatalf("CleanTitle(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestGenerateTitleUsesModel(t *testing.T) {
	fake := &fakeModel{generated: schema.AssistantMessage("\"Planning a Trip to Japan\"", nil)}
	gen := NewGenerator(fake, nil)

	title := gen.GenerateTitle(context.Background(), "I want to visit Tokyo", "What should I pack?")
	if title != "Planning a Trip to Japan" {
		t.Fatalf("unexpected title: %q", title)
	}

	input := fake.lastInput()
	if len(input) != 2 || input[0].Role != schema.System {
		t.Fatalf("unexpected title prompt: %+v", input)
	}
}

func TestGenerateTitleFallsBack(t *testing.T) {
	gen := NewGenerator(&fakeModel{generateErr: errors.New("down")}, nil)
	if got := gen.GenerateTitle(context.Background(), "a", "b"); got != DefaultTitle {
		t.Fatalf("expected default title on error, got %q", got)
	}

	gen = NewGenerator(&fakeModel{}, nil)
	if got := gen.GenerateTitle(context.Background(), "a", ""); got != DefaultTitle {
		t.Fatalf("expected default title for missing message, got %q", got)
	}
}
