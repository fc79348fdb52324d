package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
)

// AssistantName is how the assistant introduces itself.
const AssistantName = "AI Bestie"

// formattingRules apply to every personality.
var formattingRules = []string{
	"Use short **headings** when a reply covers more than one topic",
	"Break lists, steps and options into bullet points",
	"Use **bold** to emphasize the key takeaway",
	"Leave a blank line between separate ideas so the reply is easy to scan",
	"Add a fitting emoji now and then to keep the tone human 🙂",
	"End with a short follow-up question when it helps keep the conversation going",
	"When the user brings up something sensitive or painful, slow down and respond with empathy before giving advice",
}

// PromptSpec pairs a resolved personality with its composed system prompt.
type PromptSpec struct {
	Personality  personality.Personality
	SystemPrompt string
}

// NewPromptSpec resolves p against the catalog and composes its prompt.
func NewPromptSpec(p personality.Personality) PromptSpec {
	resolved := personality.Resolve(string(p))
	return PromptSpec{
		Personality:  resolved,
		SystemPrompt: BuildSystemPrompt(resolved),
	}
}

// BuildSystemPrompt composes the persona preamble, the personality
// instruction and the shared formatting rules.
func BuildSystemPrompt(p personality.Personality) string {
	return fmt.Sprintf(`You are %s, the user's AI best friend. You chat like a real friend would: honest, caring and genuinely interested in their life.

Personality:
%s

Formatting rules:
- %s`,
		AssistantName,
		personality.Instruction(p),
		strings.Join(formattingRules, "\n- "),
	)
}
