package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/middleware"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/pkg/response"
)

type ReviewHandler struct {
	reviewService  *services.ReviewService
	requireSession bool
}

// NewReviewHandler builds the handler. With requireSession set, writes
// without a bearer session are rejected.
func NewReviewHandler(reviewService *services.ReviewService, requireSession bool) *ReviewHandler {
	return &ReviewHandler{
		reviewService:  reviewService,
		requireSession: requireSession,
	}
}

// Create submits a review
// POST /api/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	var req services.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	userID, ok := h.actingUser(c, req.UserID)
	if !ok {
		return
	}
	req.UserID = userID

	review, err := h.reviewService.Submit(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Delete removes the caller's review
// DELETE /api/reviews/:id?user_id=
func (h *ReviewHandler) Delete(c *gin.Context) {
	userID, ok := h.actingUser(c, c.Query("user_id"))
	if !ok {
		return
	}

	result, err := h.reviewService.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// actingUser reconciles the user id sent by the client with the bearer
// session, if any. It writes the error response itself when it returns false.
func (h *ReviewHandler) actingUser(c *gin.Context, claimed string) (string, bool) {
	if !middleware.HasSession(c) {
		if h.requireSession {
			response.Unauthorized(c, "sign in required")
			return "", false
		}
		return claimed, true
	}

	sessionUser := middleware.GetUserID(c)
	if claimed == "" {
		return sessionUser, true
	}
	if claimed != sessionUser {
		response.Forbidden(c, "user_id does not match the signed-in user")
		return "", false
	}
	return claimed, true
}
