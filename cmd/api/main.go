package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"chatbot-api/internal/config"
	"chatbot-api/internal/db"
	apihttp "chatbot-api/internal/http"
	"chatbot-api/internal/llm"
	"chatbot-api/internal/repository"
	"chatbot-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	// El cliente del proveedor se construye al arrancar: una credencial mal
	// configurada tumba el proceso acá y no en pleno tráfico.
	llmClient, err := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.GroqAPIKey, cfg.LLMModel, logger)
	if err != nil {
		logger.Fatal("llm client init", zap.Error(err))
	}

	var repo repository.MessageRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()

		pgRepo := repository.NewPgMessageRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		repo = pgRepo
		logger.Info("using postgres store")
	} else {
		repo = repository.NewFileMessageRepository(cfg.DataFile)
		logger.Info("using file store", zap.String("path", cfg.DataFile))
	}

	// Límites: cap general por cliente sobre /api y uno más estricto para el
	// chat. Con redis configurado los contadores se comparten entre réplicas.
	var apiLimiter, chatLimiter apihttp.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		cancel()
		apiLimiter = apihttp.NewRedisRateLimiter(redisClient, 15*time.Minute, 100, "rl:api:")
		chatLimiter = apihttp.NewRedisRateLimiter(redisClient, time.Minute, 10, "rl:chat:")
	} else {
		apiLimiter = apihttp.NewMemoryRateLimiter(15*time.Minute, 100)
		chatLimiter = apihttp.NewMemoryRateLimiter(time.Minute, 10)
	}

	chatSvc := service.NewChatService(logger, repo, llmClient)
	histSvc := service.NewHistoryService(repo)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc, histSvc, cfg.IsDevelopment())
	router := apihttp.NewRouter(logger, chatHandler, cfg.AllowedOrigins, apiLimiter, chatLimiter)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("env", cfg.AppEnv),
		zap.String("model", cfg.LLMModel),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
