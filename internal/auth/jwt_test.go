package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := NewTokenService("segredo", time.Hour)

	token, err := ts.IssueToken("t1", "tesoureiro@igreja.example")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	sess, err := ts.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if sess.TenantID != "t1" {
		t.Errorf("TenantID = %q, want t1", sess.TenantID)
	}
	if sess.Subject != "tesoureiro@igreja.example" {
		t.Errorf("Subject = %q, want tesoureiro@igreja.example", sess.Subject)
	}
	if !sess.Authenticated() {
		t.Error("Authenticated() = false for parsed session, want true")
	}
}

func TestParseTokenRejections(t *testing.T) {
	ts := NewTokenService("segredo", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		if _, err := ts.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("outro-segredo", time.Hour)
		token, err := other.IssueToken("t1", "a")
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		if _, err := ts.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenService("segredo", -time.Minute)
		token, err := expired.IssueToken("t1", "a")
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		if _, err := ts.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("missing tenant claim", func(t *testing.T) {
		token, err := ts.IssueToken("", "a")
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		if _, err := ts.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
		}
	})
}
