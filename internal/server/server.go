package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/agrisoil/backend/config"
	"github.com/pageza/agrisoil/backend/internal/api"
	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/service"
)

// Dependencies are the services the HTTP layer is built from
type Dependencies struct {
	Auth       api.AuthService
	Analysis   api.SoilAnalyzer
	Submission api.SoilSubmitter
	Advisory   api.CropAdvisor
	History    api.HistoryReader
	References api.SoilReferenceStore
	Chat       api.Chatter
	Weather    service.WeatherProvider
	Locator    service.LocationResolver

	// Redis enables rate limiting when non-nil.
	Redis *redis.Client
	// UploadDir is served under /uploads when photos are stored locally.
	UploadDir string
	// Ping checks database reachability for /health.
	Ping func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *logger.Logger
}

// New wires middleware and every route group
func New(cfg *config.Config, deps Dependencies, log *logger.Logger) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	if deps.UploadDir != "" {
		router.Static("/uploads", deps.UploadDir)
	}

	limiter := middleware.NewPaidAPIRateLimiter(deps.Redis, log.With("component", "rate_limit"))
	if !limiter.Enabled() {
		log.Warn("Redis not configured, rate limiting disabled")
	}

	root := router.Group("")
	api.NewHealthHandler(deps.Ping).RegisterRoutes(root)
	api.NewAuthHandler(deps.Auth).RegisterRoutes(root)
	api.NewWeatherHandler(deps.Weather, deps.Locator).RegisterRoutes(root)
	api.NewSoilHandler(deps.Analysis, deps.Submission, deps.Auth, limiter).RegisterRoutes(root)
	api.NewCropHandler(deps.Advisory, deps.Auth, limiter).RegisterRoutes(root)
	api.NewLLMHandler(deps.Chat, deps.Auth, limiter).RegisterRoutes(root)
	api.NewHistoryHandler(deps.History, deps.Auth).RegisterRoutes(root)
	api.NewSoilReferenceHandler(deps.References, deps.Auth).RegisterRoutes(root)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Router exposes the engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("Starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
