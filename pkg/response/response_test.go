package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestSuccess_WritesRawBody(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"title": "Queen"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["title"] != "Queen" {
		t.Errorf("expected title 'Queen', got %q", body["title"])
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]string{"id": "r1"})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}

func TestHelpers_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(*gin.Context, string)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden, http.StatusForbidden},
		{"not found", NotFound, http.StatusNotFound},
		{"too many requests", TooManyRequests, http.StatusTooManyRequests},
		{"server error", ServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				tt.fn(c, "msg")
			})
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			body := parseError(t, w)
			if body.Code != tt.status {
				t.Errorf("expected code %d, got %d", tt.status, body.Code)
			}
			if body.Message != "msg" {
				t.Errorf("expected message 'msg', got %q", body.Message)
			}
		})
	}
}

func TestError_WithAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, NewBadRequest("validation failed"))
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	body := parseError(t, w)
	if body.Code != 400 {
		t.Errorf("expected code 400, got %d", body.Code)
	}
	if body.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %q", body.Message)
	}
}

func TestError_WithWrappedAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, fmt.Errorf("submit: %w", NewNotFound("user not found")))
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestError_DuplicateKeepsCode(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, NewDuplicate("already reviewed"))
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if body := parseError(t, w); body.Code != CodeDuplicate {
		t.Errorf("expected code %d, got %d", CodeDuplicate, body.Code)
	}
}

func TestError_WithGenericErrorHidesDetail(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("pq: relation \"reviews\" does not exist"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	body := parseError(t, w)
	if body.Message != "internal server error" {
		t.Errorf("storage detail leaked: %q", body.Message)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("user not found")
	if err.Error() != "user not found" {
		t.Errorf("expected 'user not found', got %q", err.Error())
	}
}
