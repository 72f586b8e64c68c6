package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/middleware"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// SignUp registers a user and signs them in
// POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.SignUp(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// SignIn handles email/password sign-in
// POST /api/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}

// Refresh exchanges a refresh token for a new session
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}

// SignOut revokes the refresh token
// POST /api/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.authService.SignOut(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"success": true, "message": "signed out"})
}

// GetSession returns the identity behind the bearer token
// GET /api/auth/session
func (h *AuthHandler) GetSession(c *gin.Context) {
	session, err := h.authService.GetSession(c.Request.Context(), middleware.GetAccessToken(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}
