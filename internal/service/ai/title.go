package ai

import (
	"context"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultTitle is used whenever a title cannot be generated.
const DefaultTitle = "New Chat"

const maxTitleRunes = 60

const titleSystemPrompt = "You name chat conversations. Reply with a short, catchy title of at most six words that captures what the user wants to talk about. Reply with the title only: no quotes, no trailing punctuation."

// GenerateTitle asks the model to name a chat from its first two user
// messages. Any failure yields DefaultTitle.
func (g *Generator) GenerateTitle(ctx context.Context, first, second string) string {
	first, second = strings.TrimSpace(first), strings.TrimSpace(second)
	if first == "" || second == "" {
		return DefaultTitle
	}

	input := []*schema.Message{
		schema.SystemMessage(titleSystemPrompt),
		schema.UserMessage("First message: " + first + "\nSecond message: " + second),
	}

	response, err := g.chatModel.Generate(ctx, input,
		model.WithTemperature(0.5),
		model.WithMaxTokens(20),
	)
	if err != nil {
		log.Printf("[ai] title generation failed: %v", err)
		return DefaultTitle
	}
	if response == nil {
		return DefaultTitle
	}

	return CleanTitle(response.Content)
}

// CleanTitle strips quoting, trailing punctuation and extra lines from a
// model-generated title.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimPrefix(title, "Title:")
	title = strings.Trim(title, " \t\"'`*“”")
	title = strings.TrimRight(title, ".!?;:")
	title = strings.TrimSpace(title)

	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	if title == "" {
		return DefaultTitle
	}
	return title
}
