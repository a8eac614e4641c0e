// Package auth issues and checks the bearer tokens of the development
// backend (cmd/jobpilot-devserver).
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs credentials to /auth/register or /auth/login
//  2. Server verifies the bcrypt hash and issues a signed JWT
//  3. The response body carries {"token": ..., "user": ...}
//  4. The client sends "Authorization: Bearer <token>" on every later call
//  5. RequireAuth validates the token and stores the user ID in the context
//
// WHY JWT?
// The token carries the user ID and the expiry, signed with the server
// secret. Checking it needs no session table, and the client can read the
// "exp" claim itself to drop a stale session before it ever hits the network.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"7","iss":"jobpilot","exp":1735689600}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "jobpilot"

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
const MinSecretLength = 16

// ErrTokenExpired is returned by Validate for a well-signed but stale token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies access tokens with a single HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService returns a TokenService whose tokens live for ttl.
// Example secret: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Generate signs a token for userID using the configured lifetime.
func (s *TokenService) Generate(userID int64) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token that expires d from now. A negative d
// yields an already-expired token, which the tests use.
//
// The subject is the decimal user ID. "sub" is a string claim in RFC 7519,
// so the integer is formatted rather than stored as a JSON number.
func (s *TokenService) GenerateWithDuration(userID int64, d time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer and expiry and returns the user ID.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, a token with "alg":"none" (or an RSA public
// key reused as an HMAC secret) could slip through. jwt.WithValidMethods
// rejects anything but HS256 before the key function runs.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return 0, errors.New("auth: invalid token claims")
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("auth: token subject %q is not a user id", c.Subject)
	}
	return id, nil
}
