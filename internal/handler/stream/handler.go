package stream

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-bestie/backend/internal/middleware"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// Generator streams one history-aware exchange.
type Generator interface {
	Stream(ctx context.Context, userID, userInput string, p personality.Personality) <-chan ai.Event
}

// PersonalitySelector applies the sentiment override to a resolved personality.
type PersonalitySelector interface {
	SelectPersonality(ctx context.Context, text string, requested personality.Personality) personality.Personality
}

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	generator Generator
	selector  PersonalitySelector
}

// New creates a new stream handler. selector may be nil.
func New(generator Generator, selector PersonalitySelector) *Handler {
	return &Handler{generator: generator, selector: selector}
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

type streamRequest struct {
	UserInput   string `json:"user_input"`
	Personality string `json:"personality"`
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Content     string `json:"content,omitempty"`
	Personality string `json:"personality,omitempty"`
	Finished    bool   `json:"finished,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var payload streamRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.UserInput) == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	ctx := r.Context()
	userID := middleware.ClientIDFrom(ctx)
	p := personality.Resolve(payload.Personality)
	if h.selector != nil {
		p = h.selector.SelectPersonality(ctx, payload.UserInput, p)
	}

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEEvent(w, flusher, "start", StreamResponse{Personality: string(p)}); err != nil {
		log.Printf("[stream] client gone before start user=%s: %v", userID, err)
		return
	}

	if err := h.forward(w, flusher, h.generator.Stream(ctx, userID, payload.UserInput, p)); err != nil {
		log.Printf("[stream] aborted user=%s: %v", userID, err)
		return
	}
	log.Printf("[stream] completed response user=%s personality=%s", userID, p)
}

// forward relays generator events to the client. It returns once the
// event channel is closed, or on the first write failure; the generator
// notices the cancelled request context and stops on its own.
func (h *Handler) forward(w http.ResponseWriter, flusher http.Flusher, events <-chan ai.Event) error {
	for ev := range events {
		var err error
		switch ev.Kind {
		case ai.EventDelta:
			err = utils.SendSSEEvent(w, flusher, "delta", StreamResponse{Content: ev.Text})
		case ai.EventFallback:
			err = utils.SendSSEEvent(w, flusher, "fallback", StreamResponse{Content: ev.Text, Kind: ai.Classify(ev.Err).String()})
			if err == nil {
				err = utils.SendSSEEvent(w, flusher, "end", StreamResponse{Finished: true})
			}
		case ai.EventDone:
			err = utils.SendSSEEvent(w, flusher, "end", StreamResponse{Content: ev.Text, Finished: true})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
