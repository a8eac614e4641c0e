package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		ttl    time.Duration
	}{
		{name: "short secret", secret: "short", ttl: time.Hour},
		{name: "zero ttl", secret: testSecret, ttl: 0},
		{name: "negative ttl", secret: testSecret, ttl: -time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTokenService(tt.secret, tt.ttl); err == nil {
				t.Fatal("NewTokenService() should have failed")
			}
		})
	}
}

// =========================================================================
// GENERATE / VALIDATE
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(42)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("Generate() = %q, does not look like a JWT", token)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Validate() = %d, want 42", got)
	}
}

func TestGenerate_SubjectAndExpiryReadableWithoutSecret(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(7)

	// The client reads exp without the secret, so the claims must be plain.
	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if c.Subject != "7" {
		t.Errorf("sub = %q, want %q", c.Subject, "7")
	}
	if c.ExpiresAt == nil || time.Until(c.ExpiresAt.Time) <= 0 {
		t.Errorf("exp = %v, want a future time", c.ExpiresAt)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration(1, -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	if _, err := ts.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate(1)

	other, _ := NewTokenService("another-secret-32-chars-long!!!!", time.Hour)
	foreign, _ := other.Generate(1)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt.token"},
		{name: "tampered signature", token: good[:len(good)-3] + "xxx"},
		{name: "signed with another secret", token: foreign},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "non-numeric subject", token: badSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Fatal("Validate() should have failed")
			}
		})
	}
}

// =========================================================================
// MIDDLEWARE
// =========================================================================

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(9)

	var seen int64
	protected := RequireAuth(ts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   int64
	}{
		{name: "valid bearer", header: "Bearer " + token, wantStatus: http.StatusNoContent, wantUser: 9},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if seen != tt.wantUser {
				t.Errorf("user in context = %d, want %d", seen, tt.wantUser)
			}
		})
	}
}

func TestUserIDFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id, ok := UserIDFromContext(req.Context()); ok {
		t.Errorf("UserIDFromContext() = (%d, true) on a bare request", id)
	}
}
