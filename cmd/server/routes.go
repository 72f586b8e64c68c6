package main

import (
	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/middleware"
	"github.com/mediahub/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery(), svc.metrics.Instrument())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metrics.Metrics)

	api := r.Group("/api")
	api.Use(middleware.AuditLog(svc.systemLogs))
	{
		media := api.Group("/media")
		{
			media.GET("/list", svc.mediaHandler.List)
			media.GET("/:id", svc.mediaHandler.GetByID)
		}

		reviews := api.Group("/reviews", svc.limiter.Middleware(), middleware.OptionalAuth())
		{
			reviews.POST("", svc.reviewHandler.Create)
			reviews.DELETE("/:id", svc.reviewHandler.Delete)
		}

		auth := api.Group("/auth")
		{
			limited := auth.Group("", svc.limiter.Middleware())
			limited.POST("/signup", svc.authHandler.SignUp)
			limited.POST("/signin", svc.authHandler.SignIn)
			limited.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/signout", svc.authHandler.SignOut)
			auth.GET("/session", middleware.AuthRequired(), svc.authHandler.GetSession)

			// SSE (token validated inside the handler; EventSource cannot send headers)
			auth.GET("/events", svc.sseHandler.StreamAuthEvents)
		}
	}

	if cfg.Server.Mode == "debug" {
		logger.Debug().Int("routes", len(r.Routes())).Msg("Routes registered")
	}
}
