package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/middleware"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/services"
	"github.com/mediahub/backend/internal/utils"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	hub    *services.AuthEventHub
	auth   *services.AuthService
}

func newTestServer(t *testing.T, requireSession bool) *testServer {
	t.Helper()
	db, err := models.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	hub := services.NewAuthEventHub()
	profiles := services.NewProfileService(db)
	authService := services.NewAuthService(db,
		&config.JWTConfig{Secret: "handler-test-secret", ExpireHour: 1},
		&config.AuthConfig{MinPasswordLength: 6},
		profiles, hub)

	mediaHandler := NewMediaHandler(services.NewMediaService(db, profiles))
	reviewHandler := NewReviewHandler(services.NewReviewService(db, profiles, config.MissingProfileReject), requireSession)
	authHandler := NewAuthHandler(authService)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, hub).CheckHealth)
	api := r.Group("/api")
	api.GET("/media/list", mediaHandler.List)
	api.GET("/media/:id", mediaHandler.GetByID)

	writes := api.Group("", middleware.OptionalAuth())
	writes.POST("/reviews", reviewHandler.Create)
	writes.DELETE("/reviews/:id", reviewHandler.Delete)

	api.POST("/auth/signup", authHandler.SignUp)
	api.POST("/auth/signin", authHandler.SignIn)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/signout", authHandler.SignOut)
	api.GET("/auth/session", middleware.AuthRequired(), authHandler.GetSession)
	api.GET("/auth/events", NewSSEHandler(hub).StreamAuthEvents)

	return &testServer{router: r, db: db, hub: hub, auth: authService}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signUp(t *testing.T, email, username string) *services.Session {
	t.Helper()
	w := s.do("POST", "/api/auth/signup", map[string]interface{}{
		"email":    email,
		"password": "secret123",
		"metadata": map[string]string{"username": username},
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, w.Code, w.Body.String())
	}
	var session services.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return &session
}

func (s *testServer) media(t *testing.T, title string) models.Media {
	t.Helper()
	m := models.Media{Title: title, Year: 1999, Genre: "Electronic"}
	if err := s.db.Create(&m).Error; err != nil {
		t.Fatalf("create media: %v", err)
	}
	return m
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	decode(t, w, &body)
	return body.Code
}
