package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/callcoach/backend/internal/config"
	"github.com/zhouzirui/callcoach/backend/internal/handler"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/training"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
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

	scenarioStore := practice.NewMemoryStore(practice.Seed())
	practiceSvc := practiceService.NewService(scenarioStore)
	trainingSvc := training.NewService()

	// 未配置 Ark 凭证时退回到回声式客户
	var generator ai.Generator = ai.Echo{}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with echo customer - 请检查 Ark 模型相关环境变量")
		} else {
			generator = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，使用回声式客户")
	}

	router := handler.NewRouter(handler.Dependencies{
		Scenarios:    scenarioStore,
		PracticeSvc:  practiceSvc,
		TrainingSvc:  trainingSvc,
		Generator:    generator,
		VoiceOptions: voiceOptions(cfg.Practice),
		Language:     cfg.Practice.Language,
		TriggerKey:   cfg.Practice.TriggerKey,
	})

	startServer(ctx, cfg.Server, router)
}

func voiceOptions(cfg config.PracticeConfig) voice.Options {
	return voice.Options{
		CaptureTimeout:   cfg.CaptureTimeout,
		ResponderTimeout: cfg.ResponderTimeout,
		SpeechTimeout:    cfg.SpeechTimeout,
		QueueSize:        cfg.ReplyQueue,
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

	log.Printf("Call coach backend listening on %s", addr)
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
