package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/pkg/response"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// GetByID returns one media item with its reviews and average rating
// GET /api/media/:id
func (h *MediaHandler) GetByID(c *gin.Context) {
	detail, err := h.mediaService.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// List returns the catalog ranked by average rating
// GET /api/media/list?limit=N
func (h *MediaHandler) List(c *gin.Context) {
	items, err := h.mediaService.List(c.Request.Context(), services.ParseLimit(c.Query("limit")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}
