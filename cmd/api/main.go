package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/database"
	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/server"
	"github.com/pageza/agrisoil/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(cfg, log)
		if err != nil {
			log.Warn("Redis unavailable, continuing without rate limiting", "error", err)
			redisClient = nil
		}
	}

	store, uploadDir := photoStore(cfg, log)

	llm := service.NewLLMService(service.LLMConfig{
		APIKey:  cfg.ClaudeAPIKey,
		BaseURL: cfg.ClaudeAPIBaseURL,
		Model:   cfg.ClaudeModel,
		Timeout: cfg.LLMTimeout,
	}, log.With("component", "llm"))
	weather := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, log.With("component", "weather"))
	locator := service.NewLocationService(service.DefaultLocationConfig(), log.With("component", "location"))

	classifier := service.NewSoilClassifier(llm, log)
	engine := service.NewRecommendationEngine(llm, log)
	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, log)

	srv := server.New(cfg, server.Dependencies{
		Auth:       auth,
		Analysis:   service.NewAnalysisService(db, classifier, store, log),
		Submission: service.NewSubmissionService(db, locator, weather, engine, log),
		Advisory:   service.NewAdvisoryService(locator, weather, engine, classifier, log),
		History:    service.NewHistoryService(db),
		References: service.NewSoilReferenceService(db, log),
		Chat:       llm,
		Weather:    weather,
		Locator:    locator,
		Redis:      redisClient,
		UploadDir:  uploadDir,
		Ping:       pinger(db),
	}, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal("Server error", "error", err)
		}
	case sig := <-quit:
		log.Info("Received signal", "signal", sig.String())
	}

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("Server stopped")
}

// photoStore picks S3 when a bucket is configured and falls back to the
// local upload directory otherwise. The second return value is the
// directory to serve statically, empty for S3.
func photoStore(cfg *config.Config, log *logger.Logger) (service.PhotoStore, string) {
	if cfg.S3BucketName != "" {
		s3Config, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			log.Fatal("Failed to initialize S3", "error", err)
		}
		log.Info("Storing soil photos in S3", "bucket", cfg.S3BucketName)
		return service.NewS3PhotoStore(s3Config, 0, log.With("component", "s3")), ""
	}

	store, err := service.NewLocalPhotoStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatal("Failed to prepare upload directory", "error", err)
	}
	log.Info("Storing soil photos locally", "dir", store.Dir())
	return store, store.Dir()
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}
}
