package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mediahub/backend/internal/services"
)

// streamRecorder adds the CloseNotifier gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestSSEHandler_RequiresToken(t *testing.T) {
	s := newTestServer(t, false)

	if w := s.do("GET", "/api/auth/events", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
	if w := s.do("GET", "/api/auth/events?token=bad", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

func TestSSEHandler_StreamsOwnEvents(t *testing.T) {
	s := newTestServer(t, false)
	session := s.signUp(t, "oracle@example.com", "oracle")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", "/api/auth/events?token="+session.AccessToken, nil)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ListenerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("SSE handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.hub.Publish(services.AuthEvent{Type: services.EventSignedIn, UserID: "someone-else"})
	s.hub.Publish(services.AuthEvent{Type: services.EventTokenRefreshed, UserID: session.User.ID})

	// give the stream loop a moment to write before disconnecting
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE handler did not return after disconnect")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: TOKEN_REFRESHED") {
		t.Errorf("own event missing from stream: %q", body)
	}
	if strings.Contains(body, "someone-else") {
		t.Errorf("other user's event leaked: %q", body)
	}
	if strings.Contains(body, session.AccessToken) {
		t.Error("stream must not carry tokens")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if s.hub.ListenerCount() != 0 {
		t.Errorf("listener not removed after disconnect, %d left", s.hub.ListenerCount())
	}
}
