// Package service holds the business rules of the development backend.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, checks ownership, orchestrates
//	Repository (data layer)  → reads/writes SQLite
//
// Services accept and return model types and apperror values, never HTTP
// types. The handler translates apperror sentinels to status codes.
//
// OWNERSHIP:
// Every job and interview belongs to exactly one user. A request for a record
// owned by someone else is answered with apperror.ErrNotFound, not
// ErrForbidden, so IDs of other users' records cannot be discovered by guessing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/auth"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

// MinPasswordLength applies to registration only. Login accepts anything
// and lets bcrypt decide.
const MinPasswordLength = 8

const invalidCredentials = "Invalid credentials"

// AuthService registers and authenticates users.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and a freshly issued token. It is exactly the
// body /auth/register and /auth/login return.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, req model.SignupRequest) (*AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password is too long")
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "Email already registered",
				Field:   "email",
				Cause:   err,
			}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// Login checks credentials and issues a token.
//
// Unknown email and wrong password produce the same error, and both spend a
// bcrypt comparison, so neither the message nor the latency tells a caller
// which emails have accounts.
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		_ = s.passwords.VerifyUnknown(creds.Password)
		return nil, apperror.Auth(nil, invalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, creds.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unreadable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Auth(nil, invalidCredentials)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// GetUserByID backs /auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user ID must be positive")
	}
	return s.users.GetUserByID(ctx, id)
}

// ValidateToken returns the user ID a token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (int64, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return 0, apperror.Auth(nil, "Invalid or expired token")
	}
	return id, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "Email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "Email is not a valid address")
	}
	return email, nil
}
