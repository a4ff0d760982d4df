package server

import (
	"context"
	"net/http"
	"time"

	"ecommerce-api/internal/config"
	"ecommerce-api/internal/database"
	custommiddleware "ecommerce-api/internal/middleware"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"
	"ecommerce-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const limiterSweepInterval = time.Minute

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          database.Service
	redis       *redis.Client
	stopLimiter chan struct{}
}

// NewServer wires repositories, services and handlers onto a chi router
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, !cfg.Server.IsProduction()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(s.rateLimiter())

	router.Get("/health", s.health)

	// Repositories
	sqlDB := db.DB()
	uow := repository.NewUnitOfWork(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	addressRepo := repository.NewAddressRepository(sqlDB)

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}, logger)
	addressService := service.NewAddressService(addressRepo)
	catalogService := service.NewCatalogService(uow, logger)
	cartService := service.NewCartService(uow, logger)
	orderService := service.NewOrderService(uow, logger)
	reviewService := service.NewReviewService(uow, logger)
	wishlistService := service.NewWishlistService(uow)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	router.Route("/api/v1", func(r chi.Router) {
		transport.NewUserHandler(userService, addressService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewCartHandler(cartService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewEngagementHandler(reviewService, wishlistService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
	})

	s.Server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// rateLimiter prefers the shared Redis window and falls back to an in-process limiter
// when Redis is disabled or unreachable at startup.
func (s *Server) rateLimiter() func(http.Handler) http.Handler {
	cfg := s.config
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			s.redis = client
			s.logger.Info("Using Redis rate limiter", zap.String("addr", cfg.Redis.Addr()))
			return custommiddleware.RateLimitMiddleware(client, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "ratelimit",
			}, s.logger)
		}
		s.logger.Warn("Redis unavailable, falling back to local rate limiter", zap.Error(err))
		_ = client.Close()
	}

	limiter := custommiddleware.NewLocalLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst)
	s.stopLimiter = make(chan struct{})
	go limiter.Run(limiterSweepInterval, s.stopLimiter)
	return custommiddleware.LocalRateLimitMiddleware(limiter, s.logger)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	stats := s.db.Health(ctx)
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	custommiddleware.RespondWithJSON(w, status, "health", stats)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.stopLimiter != nil {
		close(s.stopLimiter)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
