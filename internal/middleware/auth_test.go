package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-middleware-testing")
}

func sessionEcho(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":  GetUserID(c),
		"username": GetUsername(c),
		"session":  HasSession(c),
	})
}

func TestAuthRequired_NoHeader(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", sessionEcho)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_InvalidFormat(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", sessionEcho)

	testCases := []string{
		"InvalidToken",
		"Basic token123",
		"Bearer",
		"Bearer    ",
	}

	for _, authHeader := range testCases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", authHeader)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_InvalidToken(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", sessionEcho)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["message"] != "invalid or expired token" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestAuthRequired_ValidToken(t *testing.T) {
	token, _ := utils.GenerateToken("user-1", "neo@example.com", "neo", 24)

	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", sessionEcho)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["user_id"] != "user-1" || body["username"] != "neo" || body["session"] != true {
		t.Errorf("unexpected session context: %v", body)
	}
}

func TestOptionalAuth(t *testing.T) {
	token, _ := utils.GenerateToken("user-2", "trinity@example.com", "trinity", 1)

	router := gin.New()
	router.Use(OptionalAuth())
	router.GET("/open", sessionEcho)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantSession bool
	}{
		{"no header", "", http.StatusOK, false},
		{"valid token", "Bearer " + token, http.StatusOK, true},
		{"lowercase scheme", "bearer " + token, http.StatusOK, true},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/open", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Code != http.StatusOK {
				return
			}
			var body map[string]interface{}
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["session"] != tt.wantSession {
				t.Errorf("session = %v, expected %v", body["session"], tt.wantSession)
			}
		})
	}
}

func TestContextGetters(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if id := GetUserID(c); id != "" {
		t.Errorf("expected empty user id, got %q", id)
	}
	if HasSession(c) {
		t.Error("HasSession should be false without a user id")
	}

	c.Set(ContextUserID, "abc")
	c.Set(ContextUsername, "testuser")
	c.Set(ContextToken, "tok")

	if GetUserID(c) != "abc" || GetUsername(c) != "testuser" || GetAccessToken(c) != "tok" {
		t.Error("context getters returned unexpected values")
	}
	if !HasSession(c) {
		t.Error("HasSession should be true with a user id")
	}
}
