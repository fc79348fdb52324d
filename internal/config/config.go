package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Sentiment SentimentConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	cache, err := loadCacheConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	sentimentEnabled, err := parseBoolEnv("SENTIMENT_LLM_ENABLED", false)
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Cache:     cache,
		RateLimit: rateLimit,
		Sentiment: SentimentConfig{LLMEnabled: sentimentEnabled},
		Log:       logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	// ClientIDHeader 指定用于区分用户的请求头，缺失时退回客户端 IP。
	ClientIDHeader string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	cfg := ServerConfig{
		AllowedOrigins: parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ClientIDHeader: getEnvOrDefault("CLIENT_ID_HEADER", "X-User-ID"),
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		cfg.Addr = port
		return cfg, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// ChatMode 决定 POST /chat/ 使用的生成方式。
type ChatMode string

const (
	// ChatModeStateful 记录会话历史并流式生成。
	ChatModeStateful ChatMode = "stateful"
	// ChatModeStateless 每次请求只发送当前消息。
	ChatModeStateless ChatMode = "stateless"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	TopP      *float64
	ChatMode  ChatMode
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。温度与最大 token 数由每次请求指定。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		TopP:      topP,
	})
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}
	return chatModel, nil
}

func loadAIConfig() (AIConfig, error) {
	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	mode := ChatMode(strings.ToLower(getEnvOrDefault("CHAT_MODE", string(ChatModeStateful))))
	if mode != ChatModeStateful && mode != ChatModeStateless {
		return AIConfig{}, fmt.Errorf("invalid CHAT_MODE value %q: want stateful or stateless", mode)
	}

	return AIConfig{
		APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:     strings.TrimSpace(os.Getenv("Model")),
		BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		TopP:      topP,
		ChatMode:  mode,
	}, nil
}

// CacheConfig 描述回复缓存配置。REDIS_HOST 为空时使用进程内缓存。
type CacheConfig struct {
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisSSL      bool
	TTL           time.Duration
	LocalSize     int
}

// UseRedis 表示是否配置了远端缓存。
func (c CacheConfig) UseRedis() bool {
	return c.RedisHost != ""
}

func loadCacheConfig() (CacheConfig, error) {
	port, err := parseIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return CacheConfig{}, err
	}

	ssl, err := parseBoolEnv("REDIS_SSL", true)
	if err != nil {
		return CacheConfig{}, err
	}

	ttl, err := parseDurationEnv("CACHE_TTL", time.Hour)
	if err != nil {
		return CacheConfig{}, err
	}

	size, err := parseIntEnv("CACHE_LOCAL_SIZE", 1024)
	if err != nil {
		return CacheConfig{}, err
	}

	return CacheConfig{
		RedisHost:     strings.TrimSpace(os.Getenv("REDIS_HOST")),
		RedisPort:     port,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisSSL:      ssl,
		TTL:           ttl,
		LocalSize:     size,
	}, nil
}

// RateLimitConfig 描述每个客户端的固定窗口限流。
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	requests, err := parseIntEnv("RATE_LIMIT_REQUESTS", 5)
	if err != nil {
		return RateLimitConfig{}, err
	}
	if requests < 1 {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS value %d: must be positive", requests)
	}

	window, err := parseDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return RateLimitConfig{}, err
	}

	return RateLimitConfig{Requests: requests, Window: window}, nil
}

// SentimentConfig 控制是否使用大模型判断情绪。
type SentimentConfig struct {
	LLMEnabled bool
}

// LogConfig 描述日志文件输出，File 为空时只写标准错误。
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func loadLogConfig() (LogConfig, error) {
	size, err := parseIntEnv("LOG_MAX_SIZE_MB", 50)
	if err != nil {
		return LogConfig{}, err
	}
	backups, err := parseIntEnv("LOG_MAX_BACKUPS", 3)
	if err != nil {
		return LogConfig{}, err
	}
	age, err := parseIntEnv("LOG_MAX_AGE_DAYS", 14)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		MaxSizeMB:  size,
		MaxBackups: backups,
		MaxAgeDays: age,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

// parseDurationEnv 接受 Go duration 字符串，纯数字按秒处理。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
