package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports database reachability.
type HealthHandler struct {
	db  *gorm.DB
	hub *services.AuthEventHub
}

func NewHealthHandler(db *gorm.DB, hub *services.AuthEventHub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "mediahub",
		"components": gin.H{
			"database":        dbStatus,
			"event_listeners": h.hub.ListenerCount(),
		},
	})
}
