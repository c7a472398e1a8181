package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-responder/internal/config"
	"chat-responder/internal/db"
	apihttp "chat-responder/internal/http"
	"chat-responder/internal/llm"
	"chat-responder/internal/repository"
	"chat-responder/internal/service"
	"chat-responder/internal/trigger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	chatRepo := repository.NewPgChatRepository(pool)
	modelRepo := repository.NewPgModelRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)

	eventStore := service.NewMemoryProcessedEventStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory event store", zap.Error(err))
		} else {
			eventStore = service.NewRedisProcessedEventStore(redisClient)
		}
		cancel()
	}

	messageSvc := service.NewMessageService(messageRepo)
	historySvc := service.NewBasicHistoryService(messageRepo, cfg.HistoryLimit)
	guard := service.NewGenerationGuard(chatRepo, cfg.GenerationWaitTimeout, cfg.GenerationStaleAfter)
	responder := service.NewResponderService(
		logger,
		llmClient,
		chatRepo,
		modelRepo,
		messageSvc,
		historySvc,
		guard,
		eventStore,
		service.ResponderOptions{
			DefaultModel:      cfg.LLMModel,
			PacingEnabled:     cfg.PacingEnabled,
			ProcessedEventTTL: cfg.ProcessedEventTTL,
		},
	)

	var wg sync.WaitGroup
	if cfg.ListenerEnabled {
		listener := trigger.NewPgListener(pool, responder, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Run(ctx); err != nil {
				logger.Error("listener stopped", zap.Error(err))
			}
		}()
	}

	eventHandler := apihttp.NewEventHandler(logger, responder)
	healthHandler := apihttp.NewHealthHandler(logger, pool)
	router := apihttp.NewRouter(logger, eventHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.Bool("listener", cfg.ListenerEnabled),
		zap.String("model", cfg.LLMModel),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
}
