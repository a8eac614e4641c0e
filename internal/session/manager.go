package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/remote"
)

// Fallback messages, used when neither the server nor the transport gave
// anything better.
const (
	msgLoginFailed  = "Login failed"
	msgSignupFailed = "Sign up failed"
)

// Gateway is the slice of the remote client the session needs.
//
// Declared here, on the consumer side, so tests can substitute a fake
// without an HTTP server. *remote.Client satisfies it.
type Gateway interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error)
	Me(ctx context.Context) (*model.User, error)
}

// compile-time check that *remote.Client implements Gateway
var _ Gateway = (*remote.Client)(nil)

// Options tunes Manager behaviour.
type Options struct {
	// RejectExpiredTokens drops a persisted JWT whose exp claim is in the
	// past without a network round trip. Opaque tokens are never judged
	// locally.
	RejectExpiredTokens bool
	// Now is the clock used for the expiry check. Nil means time.Now.
	Now func() time.Time
}

// Manager drives the session lifecycle: signup, login, restore and logout.
//
// DEPENDENCIES (injected via NewManager):
//   - state   *State      → the in-memory session it writes
//   - gateway Gateway     → /auth/register, /auth/login, /auth/me
//   - store   Persister   → the durable copy of token + user
//   - logger  *slog.Logger
//
// COMMIT ORDER:
// A new session is resolved fully (token AND user) before anything is
// written. It is persisted first, in one atomic SetAll, and only then made
// visible in memory. So neither a reader of State nor a later Restore can
// ever see a token without its user.
type Manager struct {
	state   *State
	gateway Gateway
	store   Persister
	logger  *slog.Logger
	opts    Options

	mu      sync.Mutex
	loading bool
	lastErr string
}

// NewManager creates a Manager.
func NewManager(state *State, gateway Gateway, store Persister, logger *slog.Logger, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		state:   state,
		gateway: gateway,
		store:   store,
		logger:  logger,
		opts:    opts,
	}
}

// State returns the session context the Manager writes.
func (m *Manager) State() *State { return m.state }

// IsAuthenticated reports whether both a token and a user are present.
func (m *Manager) IsAuthenticated() bool { return m.state.IsAuthenticated() }

// User returns a copy of the session user, or nil.
func (m *Manager) User() *model.User { return m.state.User() }

// Token returns the bearer token, or "".
func (m *Manager) Token() string { return m.state.RawToken() }

// Loading reports whether a login or signup is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the message of the last failed login or signup, or "".
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// =========================================================================
// LOGIN / SIGNUP
// =========================================================================

// Login exchanges credentials for a session.
//
// On failure the session is left exactly as it was and the returned error
// wraps apperror.ErrAuth. Its message follows apperror.Message precedence
// with "Login failed" as the fallback.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) error {
	if err := validateCredentials(creds.Email, creds.Password); err != nil {
		return m.fail(err)
	}
	return m.authenticate(ctx, msgLoginFailed, func(ctx context.Context) (*model.AuthResponse, error) {
		return m.gateway.Login(ctx, creds)
	})
}

// Signup registers an account and signs it in. Failure semantics match Login
// with "Sign up failed" as the fallback.
func (m *Manager) Signup(ctx context.Context, req model.SignupRequest) error {
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return m.fail(err)
	}
	return m.authenticate(ctx, msgSignupFailed, func(ctx context.Context) (*model.AuthResponse, error) {
		return m.gateway.Register(ctx, req)
	})
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required")
	}
	return nil
}

// authenticate runs one credential exchange and commits the result.
//
// Steps:
//  1. Call the credential endpoint.
//  2. If the response carries no user, resolve it with /auth/me using the
//     new token explicitly (remote.WithToken), never by installing the
//     token first.
//  3. Commit token + user together.
func (m *Manager) authenticate(
	ctx context.Context,
	fallback string,
	exchange func(context.Context) (*model.AuthResponse, error),
) error {
	m.begin()
	defer m.end()

	resp, err := exchange(ctx)
	if err != nil {
		return m.fail(apperror.Auth(err, fallback))
	}
	if resp == nil || resp.Token == "" {
		return m.fail(apperror.Auth(errors.New("No token returned from server"), fallback))
	}

	user := resp.User
	if user == nil || user.ID == 0 {
		user, err = m.gateway.Me(remote.WithToken(ctx, resp.Token))
		if err != nil {
			return m.fail(apperror.Auth(err, fallback))
		}
	}

	if err := m.commit(ctx, resp.Token, *user); err != nil {
		return m.fail(err)
	}

	m.logger.Info("session established",
		slog.Int64("userID", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// commit persists token + user atomically, then publishes them in memory.
func (m *Manager) commit(ctx context.Context, token string, user model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encoding user: %w", err)
	}
	if err := m.store.SetAll(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(raw),
	}); err != nil {
		return fmt.Errorf("session: persisting session: %w", err)
	}
	m.state.set(token, user)
	return nil
}

func (m *Manager) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = true
	m.lastErr = ""
}

func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
}

// fail records err in the error slot and returns it.
func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()

	m.logger.Warn("authentication failed", slog.String("error", err.Error()))
	return err
}

// =========================================================================
// LOGOUT / RESTORE
// =========================================================================

// Logout clears the session in memory and in persistence.
//
// It cannot fail. The in-memory session is always cleared first, so even if
// the persisted copy cannot be removed the process is anonymous from here
// on; that failure is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.state.clear()

	m.mu.Lock()
	m.lastErr = ""
	m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		m.logger.Warn("clearing persisted session", slog.String("error", err.Error()))
	}
}

// Restore rebuilds the session from persistence at startup.
//
//   - no persisted token            → stay anonymous
//   - token is an expired JWT       → logout (when RejectExpiredTokens)
//   - token + decodable user        → adopt both, no network call
//   - token, user missing/corrupt   → resolve the user with /auth/me;
//     any failure there means logout
//
// An invalid persisted token is not an error from the caller's point of
// view: Restore recovers by logging out. The only errors returned are
// failures to read persistence itself.
func (m *Manager) Restore(ctx context.Context) error {
	token, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("session: reading persisted token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	if m.opts.RejectExpiredTokens && tokenExpired(token, m.opts.Now()) {
		m.logger.Info("persisted token expired, discarding session")
		m.Logout(ctx)
		return nil
	}

	rawUser, ok, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("session: reading persisted user: %w", err)
	}
	if ok {
		var user model.User
		if err := json.Unmarshal([]byte(rawUser), &user); err == nil && user.ID != 0 {
			m.state.set(token, user)
			return nil
		}
		m.logger.Warn("persisted user unreadable, resolving from server")
	}

	user, err := m.gateway.Me(remote.WithToken(ctx, token))
	if err != nil {
		m.logger.Info("persisted token rejected, discarding session",
			slog.String("error", err.Error()),
		)
		m.Logout(ctx)
		return nil
	}

	// The server vouched for the token; keep the session even if the
	// repaired user cannot be written back.
	m.state.set(token, *user)
	raw, _ := json.Marshal(user)
	if err := m.store.SetAll(ctx, map[string]string{KeyUser: string(raw)}); err != nil {
		m.logger.Warn("persisting restored user", slog.String("error", err.Error()))
	}
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim is before now.
//
// The signature is NOT checked: the client does not hold the signing key,
// and the server re-validates the token on every request anyway. This is
// only a shortcut to skip a round trip that would certainly fail.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
