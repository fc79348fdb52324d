package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ai-bestie/backend/internal/config"
	"github.com/zhouzirui/ai-bestie/backend/internal/model/personality"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/ai"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/conversation"
	"github.com/zhouzirui/ai-bestie/backend/internal/service/sentiment"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	mode := flag.String("mode", "stream", "测试模式: stream, once 或 title")
	text := flag.String("text", "", "用户输入；stream 模式留空时进入交互模式")
	second := flag.String("second", "", "title 模式下的第二条用户消息")
	persona := flag.String("personality", string(personality.Default), "人格: Friendly, Funny, Professional, Supportive")
	user := flag.String("user", "", "自定义用户 ID，留空则自动生成")
	override := flag.Bool("sentiment", true, "是否根据情绪自动切换到 Supportive")
	timeout := flag.Duration("timeout", 60*time.Second, "单次请求超时时间")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if !cfg.AI.Enabled() {
		log.Fatal("AI 未启用，请先在环境变量中配置 ARK_API_KEY 与 Model")
	}

	chatModel, err := cfg.AI.NewChatModel(context.Background())
	if err != nil {
		log.Fatalf("模型初始化失败: %v", err)
	}

	userID := *user
	if userID == "" {
		userID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	gen := ai.NewGenerator(chatModel, conversation.NewStore())
	selector, err := sentiment.NewService(context.Background(), chatModel, sentiment.Config{Enabled: cfg.Sentiment.LLMEnabled})
	if err != nil {
		log.Fatalf("情感分析初始化失败: %v", err)
	}

	pick := func(ctx context.Context, input string) personality.Personality {
		p := personality.Resolve(*persona)
		if *override {
			p = selector.SelectPersonality(ctx, input, p)
		}
		return p
	}

	switch *mode {
	case "once":
		requireText(*text)
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		reply := gen.GenerateOnce(ctx, *text, pick(ctx, *text))
		fmt.Println(reply.Text)
		log.Printf("[chattester] outcome=%s err=%v", reply.Outcome, reply.Err)
	case "title":
		requireText(*text)
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		fmt.Println(gen.GenerateTitle(ctx, *text, *second))
	case "stream":
		if *text != "" {
			runStream(gen, userID, *text, pick, *timeout)
			return
		}
		runInteractive(gen, userID, pick, *timeout)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=stream, -mode=once 或 -mode=title 指定测试模式")
	}
}

func requireText(text string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("请通过 -text 提供用户输入")
	}
}

func runInteractive(gen *ai.Generator, userID string, pick func(context.Context, string) personality.Personality, timeout time.Duration) {
	fmt.Printf("user=%s，输入消息后回车，Ctrl+D 退出\n", userID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		runStream(gen, userID, line, pick, timeout)
	}
}

func runStream(gen *ai.Generator, userID, text string, pick func(context.Context, string) personality.Personality, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p := pick(ctx, text)
	start := time.Now()
	for ev := range gen.Stream(ctx, userID, text, p) {
		switch ev.Kind {
		case ai.EventDelta:
			fmt.Print(ev.Text)
		case ai.EventDone:
			fmt.Println()
			log.Printf("[chattester] personality=%s done in %s (%d chars)", p, time.Since(start).Round(time.Millisecond), len([]rune(ev.Text)))
		case ai.EventFallback:
			fmt.Printf("\n%s\n", ev.Text)
			log.Printf("[chattester] personality=%s fallback: %v", p, ev.Err)
		}
	}
}
