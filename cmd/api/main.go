package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"botforge/internal/config"
	"botforge/internal/db"
	"botforge/internal/discord"
	"botforge/internal/email"
	apihttp "botforge/internal/http"
	"botforge/internal/llm"
	"botforge/internal/repository"
	"botforge/internal/service"

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

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	embeddingRepo := repository.NewPgEmbeddingRepository(pool)

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, llm.Options{
		EmbeddingModel:  cfg.EmbeddingModel,
		MaxTokens:       cfg.LLMMaxTokens,
		Temperature:     cfg.LLMTemperature,
		Timeout:         time.Duration(cfg.LLMTimeoutSecs) * time.Second,
		FallbackTimeout: cfg.FallbackTimeoutText,
		FallbackError:   cfg.FallbackErrorText,
	}, logger)

	dispatcher := discord.NewRESTDispatcher(cfg.DiscordAPIBase, cfg.DiscordToken, logger)
	filter := discord.NewEventFilter(cfg.BotUserID, cfg.TriggerKeywords)

	var processed service.ProcessedMarker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, replay suppression disabled", zap.Error(err))
		} else {
			processed = service.NewRedisProcessedMarker(redisClient, time.Hour)
		}
		cancel()
	}

	alertSender := email.NewDisabledSender("alert sender not configured")
	if cfg.SMTPHost != "" && cfg.AlertTo != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.AlertTo, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			alertSender = sender
		}
	}

	contextBuilder := service.NewContextBuilder(messageRepo)
	recallSvc := service.NewRecallService(logger, llmClient, embeddingRepo, 3)
	processor := service.NewProcessor(
		logger,
		userRepo,
		messageRepo,
		contextBuilder,
		llmClient,
		dispatcher,
		filter,
		recallSvc,
		processed,
		alertSender,
		service.ProcessorConfig{
			BotName:            cfg.BotName,
			Model:              cfg.LLMModel,
			Personality:        cfg.Personality,
			MaxContextMessages: cfg.MaxContextMessages,
		},
	)

	var tokenSvc *service.TokenService
	if cfg.StatsJWTSecret != "" {
		tokenSvc = service.NewTokenService(cfg.StatsJWTSecret, 24*time.Hour)
	} else {
		logger.Warn("stats jwt secret not configured, stats endpoint is open")
	}

	processHandler := apihttp.NewProcessHandler(logger, processor, pool)
	statsHandler := apihttp.NewStatsHandler(logger, userRepo, messageRepo)
	router := apihttp.NewRouter(logger, processHandler, statsHandler, tokenSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("bot", cfg.BotName))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
