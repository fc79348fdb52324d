package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/ai-bestie/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
)

// DistressThreshold is the polarity below which a message is treated as
// distressed and answered with the Supportive personality.
const DistressThreshold = -0.5

// Config 控制情感分析服务的行为。
type Config struct {
	Enabled bool
}

// Service scores message polarity with the chat model and falls back to the
// VADER analyzer when the model is unavailable or answers badly.
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   func(text string) float64
}

// NewService builds the sentiment service. chatModel may be nil, in which
// case only the VADER analyzer is used.
func NewService(ctx context.Context, chatModel model.BaseChatModel, cfg Config) (*Service, error) {
	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		fallback: analysis.Polarity,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile sentiment classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether the model-backed classifier is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Polarity returns the sentiment of text in [-1, 1].
func (s *Service) Polarity(ctx context.Context, text string) float64 {
	if !s.Enabled() {
		return s.heuristic(text)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"text": trimmed})
	if err != nil {
		log.Printf("[sentiment] classifier invoke failed, use fallback: %v", err)
		return s.heuristic(text)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.heuristic(text)
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[sentiment] classifier output parse failed, use fallback: %v", err)
		return s.heuristic(text)
	}
	if payload.Polarity == nil || math.IsNaN(*payload.Polarity) {
		return s.heuristic(text)
	}

	return clampPolarity(*payload.Polarity)
}

// SelectPersonality overrides requested with Supportive when text reads as
// distressed. Otherwise requested is returned untouched.
func (s *Service) SelectPersonality(ctx context.Context, text string, requested personality.Personality) personality.Personality {
	polarity := s.Polarity(ctx, text)
	if polarity < DistressThreshold {
		if requested != personality.Supportive {
			log.Printf("[sentiment] polarity=%.2f, switching personality %q to %s", polarity, requested, personality.Supportive)
		}
		return personality.Supportive
	}
	return requested
}

func (s *Service) heuristic(text string) float64 {
	if s == nil || s.fallback == nil {
		return analysis.Polarity(text)
	}
	return s.fallback(text)
}

type classifierPayload struct {
	Polarity *float64 `json:"polarity"`
	Reason   string   `json:"reason"`
}

// parseClassifierOutput extracts the JSON object from the model reply.
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func clampPolarity(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

const classifierSystemPrompt = "You are a sentiment analyst. Read the user's message and rate its emotional polarity as a number between -1 (very negative, distressed) and 1 (very positive). Reply with a single JSON object with two fields: polarity (a number) and reason (one short sentence). Output nothing else."

const classifierUserPrompt = "Message:\n{text}"
