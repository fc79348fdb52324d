package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ai-bestie/backend/internal/middleware"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Generator streams one history-aware exchange.
type Generator interface {
	Stream(ctx context.Context, userID, userInput string, p personality.Personality) <-chan ai.Event
}

// PersonalitySelector applies the sentiment override to a resolved personality.
type PersonalitySelector interface {
	SelectPersonality(ctx context.Context, text string, requested personality.Personality) personality.Personality
}

// Handler WebSocket聊天处理器
type Handler struct {
	generator Generator
	selector  PersonalitySelector
	upgrader  websocket.Upgrader
}

// New 创建WebSocket处理器，selector 可以为空
func New(generator Generator, selector PersonalitySelector, allowedOrigins []string) *Handler {
	return &Handler{
		generator: generator,
		selector:  selector,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ChatMessage 文本聊天消息
type ChatMessage struct {
	UserInput   string `json:"user_input"`
	Personality string `json:"personality"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.ClientIDFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection user=%s", userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	h.send(conn, "connected", map[string]any{"user": userID})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error user=%s: %v", userID, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "message":
			h.handleChatMessage(ctx, conn, userID, msg.Data)
		default:
			h.sendError(conn, "unsupported message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleChatMessage(ctx context.Context, conn *websocket.Conn, userID string, raw json.RawMessage) {
	var payload ChatMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(conn, "invalid message payload")
		return
	}
	if strings.TrimSpace(payload.UserInput) == "" {
		h.sendError(conn, "user_input is required")
		return
	}

	p := personality.Resolve(payload.Personality)
	if h.selector != nil {
		p = h.selector.SelectPersonality(ctx, payload.UserInput, p)
	}

	for ev := range h.generator.Stream(ctx, userID, payload.UserInput, p) {
		switch ev.Kind {
		case ai.EventDelta:
			h.send(conn, "delta", map[string]any{"text": ev.Text})
		case ai.EventDone:
			h.send(conn, "done", map[string]any{"text": ev.Text, "personality": p})
		case ai.EventFallback:
			h.send(conn, "fallback", map[string]any{"text": ev.Text, "kind": ai.Classify(ev.Err).String()})
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, kind string, data any) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	msg := outgoingMessage{Type: kind, Data: data, Timestamp: time.Now().Unix()}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}
