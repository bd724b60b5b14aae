package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"openlet/internal/adapter"
	"openlet/internal/adapter/events"
	"openlet/internal/adapter/inference"
	"openlet/internal/adapter/pdf"
	"openlet/internal/adapter/storage"
	"openlet/internal/cache"
	"openlet/internal/config"
	"openlet/internal/database"
	"openlet/internal/domain"
	"openlet/internal/handler"
	"openlet/internal/logger"
	"openlet/internal/middleware"
	"openlet/internal/repository"
	"openlet/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const defaultOCRCacheTTL = 24 * time.Hour

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// newInferenceClient picks the chat-completion provider named in the config.
func newInferenceClient(cfg config.LLMConfig, appLogger *zap.Logger) (domain.InferenceClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return inference.NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, appLogger), nil
	case config.ProviderLangchain, "":
		llm, err := inference.NewOpenRouterModel(cfg.BaseURL, cfg.APIKey, cfg.DefaultOCRModel)
		if err != nil {
			return nil, err
		}
		return inference.NewLangchainClient(llm, cfg.Timeout, appLogger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewSQLXOracleDB(ctx, database.DSN(cfg.DB))
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.RunMigrations(ctx, db); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Successfully connected to Redis")
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)

	// Inference
	llmClient, err := newInferenceClient(cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create inference client", zap.Error(err))
	}
	ocrTTL := cfg.ParseTTLStringOrDefault(cfg.CacheTTLs.OCR, defaultOCRCacheTTL)
	llmClient = inference.NewCachingClient(llmClient, cacheAdapter, ocrTTL, appLogger)
	appLogger.Info("Inference client initialized",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("base_url", cfg.LLM.BaseURL),
		zap.Duration("timeout", cfg.LLM.Timeout),
	)

	// Repositories and services
	recordRepository := repository.NewQuizRecordDatabaseAdapter(db)
	txManager := repository.NewTransactionManagerAdapter(db)
	publisher := events.NewStreamPublisher(redisClient, cfg.Pipeline.Stream)
	catalog := cfg.ModelCatalog()

	recordService := service.NewRecordService(recordRepository, txManager, publisher, catalog, cfg.Pipeline, appLogger)

	fileStore := storage.NewFileStore(cfg.Storage.Root, appLogger)
	renderer := pdf.NewFitzRenderer(cfg.Pipeline.PDFDPI)
	ocrStage := service.NewOCRStage(fileStore, renderer, llmClient, recordService, catalog, cfg.Pipeline, appLogger)
	generationStage := service.NewGenerationStage(fileStore, llmClient, recordService, catalog, appLogger)
	dispatcher := service.NewDispatcher(ocrStage, generationStage, cacheAdapter, cfg.Pipeline.ClaimTTL, appLogger)
	consumer := service.NewChangeConsumer(recordRepository, dispatcher, appLogger)

	// Pipeline worker
	subscriber := events.NewStreamSubscriber(redisClient, events.SubscriberConfig{
		Stream:        cfg.Pipeline.Stream,
		Group:         cfg.Pipeline.ConsumerGroup,
		Consumer:      cfg.Pipeline.ConsumerName,
		ClaimIdle:     cfg.Pipeline.ReclaimIdle,
		ClaimInterval: cfg.Pipeline.ReclaimInterval,
	}, appLogger)
	if err := subscriber.EnsureGroup(ctx); err != nil {
		appLogger.Fatal("Failed to create consumer group", zap.Error(err))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		appLogger.Info("Pipeline worker started",
			zap.String("stream", cfg.Pipeline.Stream),
			zap.String("group", cfg.Pipeline.ConsumerGroup),
			zap.String("consumer", cfg.Pipeline.ConsumerName),
		)
		if err := subscriber.Run(ctx, consumer.Handle); err != nil {
			appLogger.Error("Pipeline worker stopped", zap.Error(err))
		}
	}()

	// HTTP
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept", MaxAge: 300}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := cacheAdapter.Ping(c.UserContext()); err != nil {
			return domain.NewInternalError("redis unavailable", err)
		}
		if err := db.PingContext(c.UserContext()); err != nil {
			return domain.NewInternalError("database unavailable", err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	handler.NewQuizRecordHandler(recordService).Register(app.Group("/api"))

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	wg.Wait()
	appLogger.Info("Server exited gracefully", zap.String("pid", strconv.Itoa(os.Getpid())))
}
