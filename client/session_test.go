package client

import (
	"testing"
	"time"
)

func TestSessionToken(t *testing.T) {
	s := NewSession("tok", "7", "patient", time.Now().Add(time.Hour))
	tok, err := s.Token()
	if err != nil || tok != "tok" {
		t.Fatalf("Token = %q, %v", tok, err)
	}
	if !s.Valid() {
		t.Fatalf("session should be valid")
	}
	if s.UserID() != "7" || s.Role() != "patient" {
		t.Fatalf("identity mismatch: %s/%s", s.UserID(), s.Role())
	}
}

func TestSessionExpiry(t *testing.T) {
	s := NewSession("tok", "7", "patient", time.Now().Add(-time.Second))
	if _, err := s.Token(); err != ErrSessionExpired {
		t.Fatalf("expired session must fail with ErrSessionExpired, got %v", err)
	}
	s.Renew("tok2", time.Now().Add(time.Hour))
	tok, err := s.Token()
	if err != nil || tok != "tok2" {
		t.Fatalf("renewed Token = %q, %v", tok, err)
	}
}

func TestSessionZeroExpiryNeverExpires(t *testing.T) {
	s := NewSession("tok", "7", "doctor", time.Time{})
	if !s.Valid() {
		t.Fatalf("zero expiry means no client-side expiry")
	}
}

func TestSessionClear(t *testing.T) {
	s := NewSession("tok", "7", "doctor", time.Time{})
	s.Clear()
	if s.Valid() {
		t.Fatalf("cleared session must be invalid")
	}
}
