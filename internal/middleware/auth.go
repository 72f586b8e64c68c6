package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/utils"
	"github.com/mediahub/backend/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextUsername = "username"
	ContextToken    = "access_token"
)

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		if !setSession(c, token) {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuth attaches the session when a bearer token is present. A token
// that is present but invalid is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok || !setSession(c, token) {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setSession(c *gin.Context, token string) bool {
	claims, err := utils.ParseToken(token)
	if err != nil || claims.UserID == "" {
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextToken, token)
	return true
}

// HasSession reports whether a bearer session is attached to the request.
func HasSession(c *gin.Context) bool {
	return GetUserID(c) != ""
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// GetAccessToken returns the raw bearer token of the current session.
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}
