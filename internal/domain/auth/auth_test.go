package auth

import (
	"testing"
	"time"
)

func TestUserValidate(t *testing.T) {
	u := User{ID: "u1", Email: "a@example.com", Role: RoleAnalyst, Status: StatusActive}
	if err := u.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	missing := User{Email: "a@example.com", Role: RoleUser, Status: StatusActive}
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestUserIsActive(t *testing.T) {
	if (User{Status: StatusDisabled}).IsActive() {
		t.Fatalf("disabled user should not be active")
	}
	if !(User{Status: StatusActive}).IsActive() {
		t.Fatalf("active user should be active")
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	live := Session{ExpiresAt: now.Add(time.Hour)}
	if !live.Active(now) {
		t.Fatalf("unexpired session should be active")
	}

	expired := Session{ExpiresAt: now.Add(-time.Minute)}
	if expired.Active(now) {
		t.Fatalf("expired session should not be active")
	}

	revokedAt := now.Add(-time.Minute)
	revoked := Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	if revoked.Active(now) {
		t.Fatalf("revoked session should not be active")
	}
}
