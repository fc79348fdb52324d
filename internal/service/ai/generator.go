package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/ai-bestie/backend/internal/model/chat"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
)

// Sampling settings sent with every chat request.
const (
	Temperature float32 = 0.7
	MaxTokens           = 500
)

// HistoryStore is the slice of the conversation store the generator needs.
type HistoryStore interface {
	Append(userID string, message chat.Message) []chat.Message
}

// EventKind tags the events delivered by Stream.
type EventKind string

const (
	// EventDelta carries one non-empty fragment from the model.
	EventDelta EventKind = "delta"
	// EventDone ends a successful stream and carries the full reply.
	EventDone EventKind = "done"
	// EventFallback ends a failed stream with a fixed user-facing reply.
	EventFallback EventKind = "fallback"
)

// Event is one item of a generation stream.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Generator sends personality-conditioned prompts to the chat model and
// keeps the per-user conversation window up to date.
type Generator struct {
	chatModel model.BaseChatModel
	history   HistoryStore
	template  prompt.ChatTemplate
}

// NewGenerator wires a chat model to a history store. history may be nil
// when only GenerateOnce is used.
func NewGenerator(chatModel model.BaseChatModel, history HistoryStore) *Generator {
	return &Generator{
		chatModel: chatModel,
		history:   history,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.MessagesPlaceholder("history", false),
		),
	}
}

// Stream runs one history-aware exchange for userID. Fragments are
// delivered as EventDelta; the stream always ends with exactly one
// EventDone or EventFallback and is then closed, unless ctx is cancelled,
// in which case generation is aborted and no assistant turn is recorded.
func (g *Generator) Stream(ctx context.Context, userID, userInput string, p personality.Personality) <-chan Event {
	events := make(chan Event)
	go g.produce(ctx, events, userID, userInput, p)
	return events
}

func (g *Generator) produce(ctx context.Context, events chan<- Event, userID, userInput string, p personality.Personality) {
	defer close(events)
	defer func() {
		if r := recover(); r != nil {
			err := &UnexpectedError{Err: fmt.Errorf("panic: %v", r)}
			log.Printf("[ai] recovered during stream user=%s: %v", userID, r)
			emit(ctx, events, fallbackEvent(err))
		}
	}()

	if g.history == nil {
		emit(ctx, events, fallbackEvent(&UnexpectedError{Err: errors.New("history store not configured")}))
		return
	}

	spec := NewPromptSpec(p)
	history := g.history.Append(userID, chat.UserMessage(userInput))

	input, err := g.buildInput(ctx, spec, history)
	if err != nil {
		emit(ctx, events, fallbackEvent(&UnexpectedError{Err: err}))
		return
	}

	reader, err := g.chatModel.Stream(ctx, input, requestOptions()...)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[ai] stream request failed user=%s: %v", userID, err)
		emit(ctx, events, fallbackEvent(&ProviderError{Op: "stream", Err: err}))
		return
	}
	defer reader.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[ai] stream recv failed user=%s after %d bytes: %v", userID, builder.Len(), recvErr)
			emit(ctx, events, fallbackEvent(&ProviderError{Op: "recv", Err: recvErr}))
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if !emit(ctx, events, Event{Kind: EventDelta, Text: chunk.Content}) {
			return
		}
		builder.WriteString(chunk.Content)
	}

	reply := strings.TrimSpace(builder.String())
	if reply == "" {
		emit(ctx, events, fallbackEvent(ErrEmptyResponse))
		return
	}
	if ctx.Err() != nil {
		return
	}

	g.history.Append(userID, chat.AssistantMessage(reply))
	log.Printf("[ai] streamed reply user=%s personality=%s length=%d", userID, spec.Personality, len(reply))
	emit(ctx, events, Event{Kind: EventDone, Text: reply})
}

// GenerateOnce performs a stateless, non-streaming exchange. No history is
// read or written.
func (g *Generator) GenerateOnce(ctx context.Context, userInput string, p personality.Personality) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ai] recovered during generate: %v", r)
			reply = fallbackReply(&UnexpectedError{Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	spec := NewPromptSpec(p)
	input, err := g.buildInput(ctx, spec, []chat.Message{chat.UserMessage(userInput)})
	if err != nil {
		return fallbackReply(&UnexpectedError{Err: err})
	}

	response, err := g.chatModel.Generate(ctx, input, requestOptions()...)
	if err != nil {
		log.Printf("[ai] generate failed personality=%s: %v", spec.Personality, err)
		return fallbackReply(&ProviderError{Op: "generate", Err: err})
	}
	if response == nil {
		return fallbackReply(ErrEmptyResponse)
	}

	text := NormalizeParagraphs(response.Content)
	if text == "" {
		return fallbackReply(ErrEmptyResponse)
	}

	log.Printf("[ai] generated reply personality=%s length=%d", spec.Personality, len(text))
	return Reply{Text: text, Outcome: OutcomeOK}
}

// Collect drains a stream into a single Reply. Fragments forwarded before a
// failure are kept in front of the fallback text.
func Collect(events <-chan Event) Reply {
	var partial strings.Builder
	for ev := range events {
		switch ev.Kind {
		case EventDelta:
			partial.WriteString(ev.Text)
		case EventDone:
			return Reply{Text: ev.Text, Outcome: OutcomeOK}
		case EventFallback:
			reply := Reply{Text: ev.Text, Outcome: Classify(ev.Err), Err: ev.Err}
			if forwarded := strings.TrimSpace(partial.String()); forwarded != "" {
				reply.Text = forwarded + "\n\n" + ev.Text
			}
			return reply
		}
	}
	return fallbackReply(&UnexpectedError{Err: ErrAborted})
}

var newlineRuns = regexp.MustCompile(`\n+`)

// NormalizeParagraphs trims text and turns every run of newlines into a
// single blank-line paragraph break.
func NormalizeParagraphs(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	return newlineRuns.ReplaceAllString(text, "\n\n")
}

func (g *Generator) buildInput(ctx context.Context, spec PromptSpec, history []chat.Message) ([]*schema.Message, error) {
	messages, err := g.template.Format(ctx, map[string]any{
		"system":  spec.SystemPrompt,
		"history": toSchemaMessages(history),
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return messages, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	converted := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			converted = append(converted, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			converted = append(converted, schema.AssistantMessage(msg.Content, nil))
		case chat.RoleSystem:
			converted = append(converted, schema.SystemMessage(msg.Content))
		}
	}
	return converted
}

func requestOptions() []model.Option {
	return []model.Option{
		model.WithTemperature(Temperature),
		model.WithMaxTokens(MaxTokens),
	}
}

func fallbackEvent(err error) Event {
	return Event{Kind: EventFallback, Text: FallbackText(Classify(err)), Err: err}
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
