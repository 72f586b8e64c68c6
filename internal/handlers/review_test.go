package handlers

import (
	"net/http"
	"testing"

	"github.com/mediahub/backend/pkg/response"
)

func TestReviewHandler_CreateAndDelete(t *testing.T) {
	s := newTestServer(t, false)
	m := s.media(t, "Random Access Memories")
	bob := s.signUp(t, "bob@example.com", "bob")

	w := s.do("POST", "/api/reviews", map[string]interface{}{
		"media_id": m.ID,
		"user_id":  bob.User.ID,
		"rating":   4,
		"text":     "Great groove",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Rating int    `json:"rating"`
	}
	decode(t, w, &created)
	if created.ID == "" || created.UserID != bob.User.ID || created.Rating != 4 {
		t.Errorf("created = %+v", created)
	}

	w = s.do("POST", "/api/reviews", map[string]interface{}{
		"media_id": m.ID, "user_id": bob.User.ID, "rating": 2, "text": "again",
	}, "")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != response.CodeDuplicate {
		t.Errorf("duplicate: status %d body %s", w.Code, w.Body.String())
	}

	w = s.do("DELETE", "/api/reviews/"+created.ID+"?user_id=someone-else", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("delete by other user: expected 404, got %d", w.Code)
	}

	w = s.do("DELETE", "/api/reviews/"+created.ID+"?user_id="+bob.User.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, w, &result)
	if !result.Success {
		t.Errorf("delete result = %+v", result)
	}
}

func TestReviewHandler_CreateValidation(t *testing.T) {
	s := newTestServer(t, false)
	m := s.media(t, "Kid A")
	u := s.signUp(t, "val@example.com", "validator")

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"rating zero", map[string]interface{}{"media_id": m.ID, "user_id": u.User.ID, "rating": 0, "text": "x"}, http.StatusBadRequest},
		{"rating six", map[string]interface{}{"media_id": m.ID, "user_id": u.User.ID, "rating": 6, "text": "x"}, http.StatusBadRequest},
		{"missing text", map[string]interface{}{"media_id": m.ID, "user_id": u.User.ID, "rating": 3}, http.StatusBadRequest},
		{"rating as string", map[string]interface{}{"media_id": m.ID, "user_id": u.User.ID, "rating": "3", "text": "x"}, http.StatusBadRequest},
		{"unknown media", map[string]interface{}{"media_id": "no-such-media", "user_id": u.User.ID, "rating": 3, "text": "x"}, http.StatusNotFound},
		{"unknown user", map[string]interface{}{"media_id": m.ID, "user_id": "ghost", "rating": 3, "text": "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("POST", "/api/reviews", tt.body, "")
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestReviewHandler_DeleteRequiresUser(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do("DELETE", "/api/reviews/some-id", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without user_id, got %d", w.Code)
	}
}

func TestReviewHandler_SessionRules(t *testing.T) {
	s := newTestServer(t, false)
	m := s.media(t, "Wish You Were Here")
	alice := s.signUp(t, "alice@example.com", "alice")
	mallory := s.signUp(t, "mallory@example.com", "mallory")

	// session user must match the claimed author
	w := s.do("POST", "/api/reviews", map[string]interface{}{
		"media_id": m.ID, "user_id": alice.User.ID, "rating": 1, "text": "spoofed",
	}, mallory.AccessToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("mismatched session: expected 403, got %d", w.Code)
	}

	// session fills an omitted user_id
	w = s.do("POST", "/api/reviews", map[string]interface{}{
		"media_id": m.ID, "rating": 5, "text": "mine",
	}, alice.AccessToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("session author: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
	}
	decode(t, w, &created)
	if created.UserID != alice.User.ID {
		t.Errorf("user_id = %q, expected session user", created.UserID)
	}

	w = s.do("DELETE", "/api/reviews/"+created.ID+"?user_id="+alice.User.ID, nil, mallory.AccessToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete with mismatched session: expected 403, got %d", w.Code)
	}

	w = s.do("DELETE", "/api/reviews/"+created.ID, nil, alice.AccessToken)
	if w.Code != http.StatusOK {
		t.Errorf("delete with session: expected 200, got %d", w.Code)
	}

	w = s.do("POST", "/api/reviews", map[string]interface{}{
		"media_id": m.ID, "rating": 5, "text": "x",
	}, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid bearer: expected 401, got %d", w.Code)
	}
}

func TestReviewHandler_RequireSession(t *testing.T) {
	s := newTestServer(t, true)
	m := s.media(t, "Innuendo")
	u := s.signUp(t, "freddie@example.com", "freddie")

	body := map[string]interface{}{"media_id": m.ID, "user_id": u.User.ID, "rating": 5, "text": "x"}

	if w := s.do("POST", "/api/reviews", body, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous write: expected 401, got %d", w.Code)
	}
	if w := s.do("POST", "/api/reviews", body, u.AccessToken); w.Code != http.StatusCreated {
		t.Errorf("signed-in write: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}
