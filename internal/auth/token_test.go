// ABOUTME: Tests for JWT issuance and validation
// ABOUTME: Covers round trips, lifetimes, jti uniqueness, and failure modes

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key")

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func TestNewIssuerRejectsBadInput(t *testing.T) {
	if _, err := NewIssuer(nil, time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewIssuer(testSecret, 0); err == nil {
		t.Error("expected error for zero lifetime")
	}
	if _, err := NewIssuer(testSecret, -time.Hour); err == nil {
		t.Error("expected error for negative lifetime")
	}
}

func TestIssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t, 24*time.Hour)

	pair, err := issuer.Issue("user-123", "ada@example.com", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}
	if pair.ExpiresIn != 24*60*60 {
		t.Errorf("ExpiresIn = %d, want %d", pair.ExpiresIn, 24*60*60)
	}

	claims, err := issuer.Validate(pair.AccessToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-123")
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ada@example.com")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
	if claims.ID != pair.AccessTokenID {
		t.Errorf("jti = %q, want %q", claims.ID, pair.AccessTokenID)
	}
}

func TestAccessTokenLifetimeFollowsConfig(t *testing.T) {
	issuer := newTestIssuer(t, 2*time.Hour)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	pair, err := issuer.Issue("user-123", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := issuer.Validate(pair.AccessToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != 2*time.Hour {
		t.Errorf("access lifetime = %s, want 2h", lifetime)
	}
}

func TestRefreshTokenLifetimeIsThirtyDays(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	pair, err := issuer.Issue("user-123", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := issuer.Validate(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != 30*24*time.Hour {
		t.Errorf("refresh lifetime = %s, want 720h", lifetime)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		pair, err := issuer.Issue("user-123", "ada@example.com", "user")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if pair.AccessTokenID == pair.RefreshTokenID {
			t.Fatal("access and refresh tokens share a jti")
		}
		if seen[pair.AccessTokenID] || seen[pair.RefreshTokenID] {
			t.Fatal("jti reused across pairs")
		}
		seen[pair.AccessTokenID] = true
		seen[pair.RefreshTokenID] = true
	}
}

func TestValidateExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	pair, err := issuer.Issue("user-123", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Advance past the access expiry but not the refresh expiry
	issuer.now = func() time.Time { return issued.Add(2 * time.Hour) }

	if _, err := issuer.Validate(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("access Validate error = %v, want ErrExpiredToken", err)
	}
	if _, err := issuer.Validate(pair.RefreshToken); err != nil {
		t.Errorf("refresh Validate failed: %v", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	other := newTestIssuer(t, time.Hour)
	other.secret = []byte("a-different-secret")

	pair, err := issuer.Issue("user-123", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := other.Validate(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateMalformedToken(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		if _, err := issuer.Validate(tok); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Validate(%q) error = %v, want ErrMalformedToken", tok, err)
		}
	}
}

func TestValidateRejectsMissingClaims(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	// A token signed with the right secret but no subject or jti
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := bare.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := issuer.Validate(signed); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Validate error = %v, want ErrMissingClaim", err)
	}
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		ID:        "some-jti",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := issuer.Validate(signed); err == nil {
		t.Error("expected alg=none token to be rejected")
	}
}
