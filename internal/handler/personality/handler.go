package personality

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// Handler 人格目录的HTTP处理器
type Handler struct{}

// New 创建人格处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册人格相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personalities", h.handleList)
}

type listResponse struct {
	Default       personality.Personality `json:"default"`
	Personalities []personality.Option    `json:"personalities"`
}

// handleList 按展示顺序列出所有人格
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, listResponse{
		Default:       personality.Default,
		Personalities: personality.All(),
	})
}
