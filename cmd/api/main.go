package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"llm-chat/internal/config"
	"llm-chat/internal/db"
	apihttp "llm-chat/internal/http"
	"llm-chat/internal/llm"
	"llm-chat/internal/reader"
	"llm-chat/internal/repository"
	"llm-chat/internal/service"
	"llm-chat/internal/tracing"
	"llm-chat/internal/websearch"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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

	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.TracingEnabled)
	if err != nil {
		logger.Fatal("tracing setup", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	threadRepo := repository.NewPgThreadRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	shareRepo := repository.NewPgShareRepository(pool)
	prefRepo := repository.NewPgPreferenceRepository(pool)
	docRepo := repository.NewPgDocumentRepository(pool)

	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)

	locks := service.NewMemoryThreadLock()
	limiter := service.NewMemorySendLimiter(cfg.SendRateWindow, cfg.SendRateLimit)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process locks and limiter", zap.Error(err))
		} else {
			locks = service.NewRedisThreadLock(redisClient, cfg.ThreadLockTTL, logger)
			limiter = service.NewRedisSendLimiter(redisClient, cfg.SendRateWindow, cfg.SendRateLimit)
		}
		cancel()
		defer redisClient.Close()
	}

	searcher := websearch.NewDisabledSearcher("naver credentials not configured")
	if cfg.NaverClientID != "" && cfg.NaverClientSecret != "" {
		searcher = websearch.NewNaverSearcher(cfg.NaverClientID, cfg.NaverClientSecret, nil)
	} else {
		logger.Warn("web search disabled")
	}

	location, err := time.LoadLocation(cfg.SearchTimezone)
	if err != nil {
		logger.Warn("unknown search timezone, using UTC", zap.String("timezone", cfg.SearchTimezone), zap.Error(err))
		location = time.UTC
	}

	threadSvc := service.NewThreadService(logger, threadRepo, messageRepo)
	contextSvc := service.NewContextService(messageRepo, prefRepo)
	knowledge := service.NewVectorKnowledgeBase(docRepo, llmClient)
	retrievalSvc := service.NewRetrievalService(logger, knowledge, cfg.RetrievalTopK, cfg.RetrievalMinScore, cfg.RetrievalTimeout)
	webSvc := service.NewWebSearchService(logger, llmClient, searcher, reader.NewHTTPFetcher(nil), reader.NewTextExtractor(), service.WebSearchConfig{
		Location:        location,
		MaxResults:      cfg.WebResultCount,
		PageCharBudget:  cfg.PageCharBudget,
		DecisionTimeout: cfg.DecisionTimeout,
		SearchTimeout:   cfg.SearchTimeout,
		FetchTimeout:    cfg.FetchTimeout,
	})
	workerPool := service.NewWorkerPool(cfg.PipelineWorkers, cfg.PipelineQueueWait)
	chatSvc := service.NewChatService(service.ChatDependencies{
		Logger:            logger,
		Threads:           threadSvc,
		Messages:          messageRepo,
		Contexts:          contextSvc,
		Retrieval:         retrievalSvc,
		WebSearch:         webSvc,
		Streamer:          service.NewStreamer(logger, llmClient),
		Pool:              workerPool,
		Locks:             locks,
		Limiter:           limiter,
		GenerationTimeout: cfg.GenerationTimeout,
	})
	shareSvc := service.NewShareService(logger, shareRepo, threadSvc, messageRepo)
	docSvc := service.NewDocumentService(logger, docRepo, llmClient)
	prefSvc := service.NewPreferenceService(logger, prefRepo)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	router := apihttp.NewRouter(logger, cfg.ServiceName, jwtSvc, apihttp.Handlers{
		Chat:       apihttp.NewChatHandler(logger, threadSvc, chatSvc),
		Share:      apihttp.NewShareHandler(logger, shareSvc),
		Document:   apihttp.NewDocumentHandler(logger, docSvc),
		Preference: apihttp.NewPreferenceHandler(logger, prefSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout+10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// Las generaciones en curso siguen tras cerrar las conexiones; se esperan para persistir la respuesta.
	if err := workerPool.Wait(shutdownCtx); err != nil {
		logger.Warn("pipeline workers still running at shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
