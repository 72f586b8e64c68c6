package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/internal/utils"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/mediahub/backend/pkg/response"
)

const sseBufferSize = 16

// SSEHandler streams auth-state events to signed-in clients
type SSEHandler struct {
	hub *services.AuthEventHub
}

func NewSSEHandler(hub *services.AuthEventHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// StreamAuthEvents sends the caller's own auth events. EventSource cannot
// set headers, so the token may also come from the query string.
// GET /api/auth/events
func (h *SSEHandler) StreamAuthEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := make(chan services.AuthEvent, sseBufferSize)

	unsubscribe := h.hub.Subscribe(func(e services.AuthEvent) {
		if e.UserID != claims.UserID {
			return
		}
		select {
		case events <- e:
		default:
			logger.Warn().Str("client_id", clientID).Msg("SSE client too slow, event dropped")
		}
	})
	defer unsubscribe()

	logger.Info().Str("client_id", clientID).Str("user_id", claims.UserID).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
