package client

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionExpired = errors.New("client: session expired")

// Session carries the bearer token and caller identity with an explicit
// expiry. It is injected into the Client so nothing reads credentials
// from ambient global state; accessors are safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	role      string
	expiresAt time.Time
}

// NewSession builds a session. A zero expiresAt means the token does not
// expire client-side.
func NewSession(token, userID, role string, expiresAt time.Time) *Session {
	return &Session{token: token, userID: userID, role: role, expiresAt: expiresAt}
}

// Token returns the bearer token, or ErrSessionExpired once past expiry.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrSessionExpired
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.token, nil
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Valid reports whether Token would currently succeed.
func (s *Session) Valid() bool {
	_, err := s.Token()
	return err == nil
}

// Renew swaps in a fresh token and expiry, e.g. after a re-login.
func (s *Session) Renew(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
}

// Clear drops the token; subsequent calls fail with ErrSessionExpired.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
