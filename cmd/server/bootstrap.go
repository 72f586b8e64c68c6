package main

import (
	"fmt"

	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/handlers"
	"github.com/mediahub/backend/internal/middleware"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/internal/utils"
	"github.com/mediahub/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	db             *gorm.DB
	authEvents     *services.AuthEventHub
	systemLogs     *services.SystemLogService
	logCleanup     *services.LogCleanupScheduler
	limiter        *middleware.RateLimiter
	authService    *services.AuthService
	mediaHandler   *handlers.MediaHandler
	reviewHandler  *handlers.ReviewHandler
	authHandler    *handlers.AuthHandler
	sseHandler     *handlers.SSEHandler
	healthHandler  *handlers.HealthHandler
	metrics        *handlers.MetricsHandler
	unsubscribeLog func()
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if cfg.Database.Seed {
		if err := models.SeedDefaultData(db); err != nil {
			logger.Warn().Err(err).Msg("Failed to seed default data")
		}
	}

	systemLogs := services.NewSystemLogService(db)
	logCleanup := services.NewLogCleanupScheduler(systemLogs)
	if err := logCleanup.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start log cleanup scheduler")
	}

	// one hub per process, shared by the auth service and the event stream
	authEvents := services.NewAuthEventHub()
	profiles := services.NewProfileService(db)
	authService := services.NewAuthService(db, &cfg.JWT, &cfg.Auth, profiles, authEvents)
	collation, err := cfg.Catalog.CollationTag()
	if err != nil {
		return nil, fmt.Errorf("catalog collation: %w", err)
	}
	mediaService := services.NewMediaService(db, profiles).WithCollation(collation)
	reviewService := services.NewReviewService(db, profiles, cfg.Reviews.MissingProfile)

	unsubscribeLog := authService.Subscribe(func(e services.AuthEvent) {
		logger.Debug().Str("event", string(e.Type)).Str("user_id", e.UserID).Msg("auth state changed")
	})

	logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("missing_profile_policy", reviewService.Policy()).
		Str("collation", collation.String()).
		Bool("require_session_for_writes", cfg.Auth.RequireSessionForWrites).
		Msg("Services initialized")

	return &appServices{
		db:             db,
		authEvents:     authEvents,
		systemLogs:     systemLogs,
		logCleanup:     logCleanup,
		limiter:        middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		authService:    authService,
		mediaHandler:   handlers.NewMediaHandler(mediaService),
		reviewHandler:  handlers.NewReviewHandler(reviewService, cfg.Auth.RequireSessionForWrites),
		authHandler:    handlers.NewAuthHandler(authService),
		sseHandler:     handlers.NewSSEHandler(authEvents),
		healthHandler:  handlers.NewHealthHandler(db, authEvents),
		metrics:        handlers.NewMetricsHandler(db, authEvents),
		unsubscribeLog: unsubscribeLog,
	}, nil
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.unsubscribeLog()
	s.logCleanup.Stop()
	s.limiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
