package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ai-bestie/backend/internal/config"
	"github.com/zhouzirui/ai-bestie/backend/internal/handler/chat"
	personalityHandler "github.com/zhouzirui/ai-bestie/backend/internal/handler/personality"
	"github.com/zhouzirui/ai-bestie/backend/internal/handler/stream"
	"github.com/zhouzirui/ai-bestie/backend/internal/handler/ws"
	"github.com/zhouzirui/ai-bestie/backend/internal/middleware"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/cache"
	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// Deps 汇总路由需要的服务。Selector 与 Cache 可以为空。
type Deps struct {
	Generator *ai.Generator
	Selector  chat.PersonalitySelector
	Cache     *cache.Gateway
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.ClientID(cfg.Server.ClientIDHeader))

	// 非预检的 OPTIONS 请求同样直接返回 200
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "AI Best Friend Chatbot API"})
	})
	r.Get("/healthz", healthHandler(deps))

	personalityHandler.New().RegisterRoutes(r)

	if deps.Generator == nil {
		unavailable := func(w http.ResponseWriter, r *http.Request) {
			utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		}
		r.Post("/chat/", unavailable)
		r.Get("/chat/", unavailable)
		r.Post("/chat/stream", unavailable)
		r.Get("/ws/chat", unavailable)
		r.Post("/generate-chat-title/", unavailable)
		return r
	}

	chatHandler := chat.New(deps.Generator, chat.Options{
		Mode:     cfg.AI.ChatMode,
		Selector: deps.Selector,
		Cache:    deps.Cache,
	})

	r.Group(func(limited chi.Router) {
		limited.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		chatHandler.RegisterRoutes(limited)

		// 无状态部署不记录会话历史，流式接口统一返回 409
		if cfg.AI.ChatMode == config.ChatModeStateless {
			statelessOnly := func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusConflict, "streaming chat is unavailable in stateless mode")
			}
			limited.Post("/chat/stream", statelessOnly)
			limited.Get("/ws/chat", statelessOnly)
			return
		}

		stream.New(deps.Generator, deps.Selector).RegisterRoutes(limited)
		ws.New(deps.Generator, deps.Selector, cfg.Server.AllowedOrigins).RegisterRoutes(limited)
	})
	chatHandler.RegisterTitleRoutes(r)

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		if deps.Generator == nil {
			status = "degraded"
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status": status,
			"cache":  deps.Cache.Status(ctx),
		})
	}
}
