package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/emotalk/backend/internal/config"
	"github.com/zhouzirui/emotalk/backend/internal/corpus"
	"github.com/zhouzirui/emotalk/backend/internal/handler"
	"github.com/zhouzirui/emotalk/backend/internal/model/counseling"
	"github.com/zhouzirui/emotalk/backend/internal/service/ai"
	"github.com/zhouzirui/emotalk/backend/internal/service/chat"
	"github.com/zhouzirui/emotalk/backend/internal/service/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Warnf("failed to load .env file, continuing with system environment variables only: %v", envErr)
	}

	// 语料加载失败时直接退出
	documents, err := corpus.Load(ctx, cfg.Corpus.DataDir, cfg.Corpus.ExtractDir)
	if err != nil {
		log.Fatal("failed to load counseling corpus", err)
	}
	store := counseling.NewMemoryStore(corpus.Extract(documents))
	stats := store.Stats()
	log.Infow("counseling corpus ready",
		"documents", len(documents),
		"records", stats.Records,
		"personas", stats.Personas,
	)

	aiClient := ai.NewClient(cfg.AI)
	log.Infow("completion client ready", "models", aiClient.Models(), "default", cfg.Chat.DefaultModel)

	session := chat.NewSession(aiClient, chat.Options{
		SystemPrompt: cfg.Chat.SystemPrompt,
		Greeting:     cfg.Chat.Greeting,
		DefaultModel: cfg.Chat.DefaultModel,
	})
	session.Initialize()

	speechService := speech.NewService(cfg.Speech, nil)
	if speechService.Enabled() {
		log.Info("Speech service initialized successfully")
	} else {
		log.Info("语音服务凭证未配置，仅提供文本回复")
	}

	router := handler.NewRouter(handler.Deps{
		Session: session,
		Speech:  speechService,
		Corpus:  store,
		Models:  aiClient.Models(),
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Infof("emotalk backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", err)
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
