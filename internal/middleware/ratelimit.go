package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// RateLimit 对每个客户端做固定窗口计数限流，超出时返回 429 JSON。
// 客户端键取自 ClientID 中间件写入的上下文。
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIDFrom(r.Context()), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("[ratelimit] client=%s exceeded %d requests per %s", ClientIDFrom(r.Context()), requests, window)
			utils.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded, please slow down")
		}),
	)
}
