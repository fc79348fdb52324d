package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/ai-bestie/backend/internal/config"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/chat"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/cache"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/conversation"
)

type echoModel struct{}

func (echoModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("once: "+input[len(input)-1].Content, nil), nil
}

func (echoModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	last := input[len(input)-1].Content
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("you said ", nil),
		schema.AssistantMessage("", nil),
		schema.AssistantMessage(last, nil),
	}), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			ClientIDHeader: "X-User-ID",
		},
		AI:        config.AIConfig{ChatMode: config.ChatModeStateful},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

func newTestRouter(cfg *config.Config) (http.Handler, *conversation.Store) {
	store := conversation.NewStore()
	deps := Deps{
		Generator: ai.NewGenerator(echoModel{}, store),
		Cache:     cache.NewGateway(cache.NewMemoryStore(16, time.Hour), time.Hour),
	}
	return NewRouter(cfg, deps), store
}

func do(r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHomeAndHealth(t *testing.T) {
	r, _ := newTestRouter(testConfig())

	resp := do(r, http.MethodGet, "/", "", nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("AI Best Friend Chatbot API")) {
		t.Fatalf("unexpected home response %d %s", resp.Code, resp.Body.String())
	}

	resp = do(r, http.MethodGet, "/healthz", "", nil)
	var health map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" || health["cache"] != "memory: ok" {
		t.Fatalf("unexpected health %v", health)
	}
}

func TestOptionsAlwaysOK(t *testing.T) {
	r, _ := newTestRouter(testConfig())

	if resp := do(r, http.MethodOptions, "/chat/", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for OPTIONS, got %d", resp.Code)
	}
}

func TestChatRecordsHistory(t *testing.T) {
	r, store := newTestRouter(testConfig())

	resp := do(r, http.MethodPost, "/chat/", "alice", map[string]string{"user_input": "hello", "personality": "Funny"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["response"] != "you said hello" {
		t.Fatalf("unexpected reply %q", body["response"])
	}

	history := store.Get("alice")
	if len(history) != 2 || history[0].Role != chat.RoleUser || history[1].Content != "you said hello" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestStatelessModeSkipsHistory(t *testing.T) {
	cfg := testConfig()
	cfg.AI.ChatMode = config.ChatModeStateless
	r, store := newTestRouter(cfg)

	resp := do(r, http.MethodPost, "/chat/", "bob", map[string]string{"user_input": "hey"})
	if !bytes.Contains(resp.Body.Bytes(), []byte("once: hey")) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if store.Len() != 0 {
		t.Fatalf("stateless mode must not touch history")
	}
}

func TestRateLimitOnChatRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Minute}
	r, _ := newTestRouter(cfg)

	for i := 0; i < 2; i++ {
		if resp := do(r, http.MethodGet, "/chat/?user_input=hi", "carol", nil); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.Code)
		}
	}
	if resp := do(r, http.MethodGet, "/chat/?user_input=hi", "carol", nil); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp := do(r, http.MethodGet, "/chat/?user_input=hi", "dave", nil); resp.Code != http.StatusOK {
		t.Fatalf("other clients keep their own budget, got %d", resp.Code)
	}
	if resp := do(r, http.MethodGet, "/personalities", "carol", nil); resp.Code != http.StatusOK {
		t.Fatalf("catalog route is not rate limited, got %d", resp.Code)
	}
}

func TestRouterWithoutGenerator(t *testing.T) {
	r := NewRouter(testConfig(), Deps{})

	if resp := do(r, http.MethodPost, "/chat/", "erin", map[string]string{"user_input": "hi"}); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}

	resp := do(r, http.MethodGet, "/healthz", "", nil)
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"cache":"disabled"`)) || !bytes.Contains(resp.Body.Bytes(), []byte(`"status":"degraded"`)) {
		t.Fatalf("unexpected health %s", resp.Body.String())
	}
}

func TestStatefulRepeatedInputRecordsEveryTurn(t *testing.T) {
	r, store := newTestRouter(testConfig())

	for _, input := range []string{"hi", "other", "hi"} {
		resp := do(r, http.MethodPost, "/chat/", "frank", map[string]string{"user_input": input})
		if resp.Code != http.StatusOK {
			t.Fatalf("input %q: expected 200, got %d", input, resp.Code)
		}
	}

	history := store.Get("frank")
	if len(history) != 6 {
		t.Fatalf("expected 3 exchanges in history, got %d messages", len(history))
	}
	if last := history[len(history)-1]; last.Role != chat.RoleAssistant || last.Content != "you said hi" {
		t.Fatalf("last turn missing from history: %+v", last)
	}
}

func TestStatelessModeRejectsStreamingRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.AI.ChatMode = config.ChatModeStateless
	r, store := newTestRouter(cfg)

	resp := do(r, http.MethodPost, "/chat/stream", "grace", map[string]string{"user_input": "hi"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for SSE in stateless mode, got %d", resp.Code)
	}
	if resp := do(r, http.MethodGet, "/ws/chat", "grace", nil); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for websocket in stateless mode, got %d", resp.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("stateless deployment must not record history, users=%d", store.Len())
	}
}
