package services

import (
	"sync"
	"time"
)

type AuthEventType string

const (
	EventUserCreated    AuthEventType = "USER_CREATED"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is an auth-state transition. It never carries tokens.
type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID string        `json:"user_id"`
	At     time.Time     `json:"at"`
}

// AuthEventHub fans auth-state changes out to subscribers. One hub is
// created by the server's composition root and shared by the auth service
// and the event stream handler.
type AuthEventHub struct {
	mu        sync.RWMutex
	listeners map[uint64]func(AuthEvent)
	nextID    uint64
}

func NewAuthEventHub() *AuthEventHub {
	return &AuthEventHub{
		listeners: make(map[uint64]func(AuthEvent)),
	}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (h *AuthEventHub) Subscribe(fn func(AuthEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish calls every listener synchronously, outside the hub lock so a
// listener may unsubscribe itself. Listeners must not block.
func (h *AuthEventHub) Publish(event AuthEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

// ListenerCount returns the number of active subscriptions.
func (h *AuthEventHub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
