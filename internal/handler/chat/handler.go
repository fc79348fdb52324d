package chat

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-bestie/backend/internal/config"
	"github.com/zhouzirui/ai-bestie/backend/internal/middleware"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/cache"
	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// Generator 是聊天处理器依赖的回复生成能力。
type Generator interface {
	Stream(ctx context.Context, userID, userInput string, p personality.Personality) <-chan ai.Event
	GenerateOnce(ctx context.Context, userInput string, p personality.Personality) ai.Reply
	GenerateTitle(ctx context.Context, first, second string) string
}

// PersonalitySelector 根据用户消息的情绪决定最终使用的人格。
type PersonalitySelector interface {
	SelectPersonality(ctx context.Context, text string, requested personality.Personality) personality.Personality
}

// Options 配置聊天处理器的可选依赖。
type Options struct {
	Mode     config.ChatMode
	Selector PersonalitySelector
	Cache    *cache.Gateway
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	generator Generator
	selector  PersonalitySelector
	cache     *cache.Gateway
	mode      config.ChatMode
}

// New 创建聊天处理器
func New(generator Generator, opts Options) *Handler {
	mode := opts.Mode
	if mode == "" {
		mode = config.ChatModeStateful
	}
	return &Handler{
		generator: generator,
		selector:  opts.Selector,
		cache:     opts.Cache,
		mode:      mode,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/", h.handleChat)
	r.Get("/chat/", h.handleChatQuery)
}

// RegisterTitleRoutes 注册会话标题路由
func (h *Handler) RegisterTitleRoutes(r chi.Router) {
	r.Post("/generate-chat-title/", h.handleGenerateTitle)
}

type chatRequest struct {
	UserInput   string `json:"user_input"`
	Personality string `json:"personality"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat 处理 JSON 聊天请求
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.reply(w, r, payload)
}

// handleChatQuery 通过查询参数聊天，便于手动测试
func (h *Handler) handleChatQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.reply(w, r, chatRequest{
		UserInput:   query.Get("user_input"),
		Personality: query.Get("personality"),
	})
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request, payload chatRequest) {
	if strings.TrimSpace(payload.UserInput) == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	userID := middleware.ClientIDFrom(r.Context())
	text := h.Respond(r.Context(), userID, payload.UserInput, payload.Personality)
	utils.RespondJSON(w, http.StatusOK, chatResponse{Response: text})
}

// Respond runs one chat turn in the configured mode. Stateless turns go
// through the reply cache; stateful turns always reach the generator so
// the history window records every exchange.
func (h *Handler) Respond(ctx context.Context, userID, userInput, requested string) string {
	p := h.SelectPersonality(ctx, userInput, requested)

	if h.mode != config.ChatModeStateless {
		reply := ai.Collect(h.generator.Stream(ctx, userID, userInput, p))
		if !reply.OK() {
			log.Printf("[chat] generation fell back user=%s outcome=%s: %v", userID, reply.Outcome, reply.Err)
		}
		return reply.Text
	}

	key := cache.Key(userID, string(p), userInput)
	if cached, ok := h.cache.Lookup(ctx, key); ok {
		log.Printf("[chat] cache hit user=%s personality=%s", userID, p)
		return cached
	}

	reply := h.generator.GenerateOnce(ctx, userInput, p)
	if !reply.OK() {
		log.Printf("[chat] generation fell back user=%s outcome=%s: %v", userID, reply.Outcome, reply.Err)
		return reply.Text
	}

	h.cache.Save(ctx, key, reply.Text)
	return reply.Text
}

// SelectPersonality resolves the requested personality and applies the
// sentiment override.
func (h *Handler) SelectPersonality(ctx context.Context, userInput, requested string) personality.Personality {
	p := personality.Resolve(requested)
	if h.selector != nil {
		p = h.selector.SelectPersonality(ctx, userInput, p)
	}
	return p
}

type titleMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type titleRequest struct {
	Messages []titleMessage `json:"messages"`
}

type titleResponse struct {
	Title string `json:"title"`
}

// handleGenerateTitle 根据前两条用户消息生成会话标题
func (h *Handler) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var payload titleRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userMessages := make([]string, 0, 2)
	for _, msg := range payload.Messages {
		if msg.Role != "user" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		userMessages = append(userMessages, msg.Content)
		if len(userMessages) == 2 {
			break
		}
	}

	if len(userMessages) < 2 {
		utils.RespondJSON(w, http.StatusOK, titleResponse{Title: ai.DefaultTitle})
		return
	}

	title := h.generator.GenerateTitle(r.Context(), userMessages[0], userMessages[1])
	utils.RespondJSON(w, http.StatusOK, titleResponse{Title: title})
}
