package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zhouzirui/ai-bestie/backend/internal/config"
	"github.com/zhouzirui/ai-bestie/backend/internal/handler"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/cache"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/conversation"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/sentiment"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	closeLog := setupLogging(cfg.Log)
	defer closeLog()

	history := conversation.NewStore()

	// Initialize chat model and generator
	var chatModel model.ChatModel
	var generator *ai.Generator
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			generator = ai.NewGenerator(chatModel, history)
			log.Printf("AI generator initialized, chat mode=%s", cfg.AI.ChatMode)
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Initialize sentiment override (LLM classifier with VADER fallback)
	var classifierModel model.BaseChatModel
	if chatModel != nil {
		classifierModel = chatModel
	}
	sentimentSvc, err := sentiment.NewService(ctx, classifierModel, sentiment.Config{Enabled: cfg.Sentiment.LLMEnabled})
	if err != nil {
		log.Printf("warning: failed to initialize sentiment classifier, using VADER only: %v", err)
		sentimentSvc, _ = sentiment.NewService(ctx, nil, sentiment.Config{})
	} else if sentimentSvc.Enabled() {
		log.Println("Sentiment classifier service enabled")
	} else if cfg.Sentiment.LLMEnabled {
		log.Println("Sentiment classifier requested but chat model unavailable, falling back to VADER")
	}

	store := newCacheStore(ctx, cfg.Cache)
	defer store.Close()

	router := handler.NewRouter(cfg, handler.Deps{
		Generator: generator,
		Selector:  sentimentSvc,
		Cache:     cache.NewGateway(store, cfg.Cache.TTL),
	})

	startServer(ctx, cfg.Server, router)
}

// newCacheStore 优先使用 Redis，未配置或连接失败时退回进程内缓存。
func newCacheStore(ctx context.Context, cfg config.CacheConfig) cache.Store {
	if cfg.UseRedis() {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		store, err := cache.NewRedisStore(connectCtx, cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			SSL:      cfg.RedisSSL,
		})
		if err == nil {
			log.Printf("[cache] connected to redis at %s:%d", cfg.RedisHost, cfg.RedisPort)
			return store
		}
		log.Printf("[cache] warning: %v, falling back to local cache", err)
	}

	log.Printf("[cache] using local cache size=%d ttl=%s", cfg.LocalSize, cfg.TTL)
	return cache.NewMemoryStore(cfg.LocalSize, cfg.TTL)
}

// setupLogging 在配置了 LOG_FILE 时同时写入滚动日志文件。
func setupLogging(cfg config.LogConfig) func() {
	if cfg.File == "" {
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.Printf("logging to %s", cfg.File)

	return func() {
		log.SetOutput(os.Stderr)
		_ = rotator.Close()
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("AI Bestie backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
