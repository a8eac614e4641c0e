// Package remote is the client's gateway to the tracker backend.
//
// It knows the nine endpoints the sync core consumes and nothing about
// local state: every method performs one HTTP call and returns the decoded
// response (or the raw body, when the payload shape varies across backend
// versions and must be normalised by the caller).
//
// ERROR SHAPE:
// A non-2xx response becomes a *StatusError carrying the server's own
// message when it sent one. Callers turn that into a user-visible message
// with apperror.Message, which prefers the server text over the transport
// text over a fixed fallback.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/sakif/jobpilot/internal/model"
)

const (
	maxBodyBytes       = 8 << 20
	maxErrorMessageLen = 512
	defaultTimeout     = 30 * time.Second
)

// Config holds gateway configuration.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://jobpilot.example.com".
	BaseURL string
	// AuthPrefix is prepended to the /auth/* paths. Some deployments mount
	// auth under "/api" while jobs and interviews live at the root.
	AuthPrefix string
	// Timeout bounds every request. Zero means 30s.
	Timeout time.Duration
	// Transport is the underlying RoundTripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client performs authenticated calls against the backend.
type Client struct {
	baseURL    string
	authPrefix string
	http       *http.Client
	logger     *slog.Logger
}

// New creates a Client. tokens is consulted on every request; pass the
// session state so the Authorization header always reflects the current
// session.
func New(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("remote: parsing base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		authPrefix: "/" + strings.Trim(cfg.AuthPrefix, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &bearerTransport{base: base, source: tokens},
		},
		logger: logger,
	}, nil
}

// =========================================================================
// JOBS
// =========================================================================

// ListJobs returns the raw /jobs payload (a JSON array of applications).
func (c *Client) ListJobs(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/jobs", nil)
}

// PatchJob sends a partial update for one application.
func (c *Client) PatchJob(ctx context.Context, id int64, patch model.ApplicationPatch) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, jobPath(id), patch)
}

// DeleteJob deletes one application.
func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, jobPath(id), nil)
	return err
}

func jobPath(id int64) string {
	return "/jobs/" + strconv.FormatInt(id, 10)
}

// =========================================================================
// INTERVIEWS
// =========================================================================

// ListInterviews returns the raw /interviews payload.
func (c *Client) ListInterviews(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/interviews", nil)
}

// InterviewsForJob returns the raw payload for one application's interviews.
// Depending on the backend version it is a single object or an array.
func (c *Client) InterviewsForJob(ctx context.Context, applicationID int64) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/interviews/job/"+strconv.FormatInt(applicationID, 10), nil)
}

// CreateInterview posts an interview for an application.
func (c *Client) CreateInterview(ctx context.Context, payload model.InterviewPayload) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/interviews", payload)
}

// =========================================================================
// AUTH
// =========================================================================

// Register creates an account and returns the issued token (and, on newer
// backends, the user profile).
func (c *Client) Register(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.AuthResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, c.authPath(path), body)
	if err != nil {
		return nil, err
	}
	var resp model.AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("remote: decoding %s response: %w", path, err)
	}
	return &resp, nil
}

// Me resolves the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	raw, err := c.do(ctx, http.MethodGet, c.authPath("/auth/me"), nil)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("remote: decoding /auth/me response: %w", err)
	}
	if user.ID == 0 {
		return nil, errors.New("remote: /auth/me returned a user without an id")
	}
	return &user, nil
}

func (c *Client) authPath(p string) string {
	if c.authPrefix == "/" {
		return p
	}
	return c.authPrefix + p
}

// =========================================================================
// PLUMBING
// =========================================================================

// do executes one JSON request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("remote call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("remote: reading %s %s response: %w", method, path, err)
	}

	c.logger.Debug("remote call completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			message:    serverMessage(data),
		}
	}

	return data, nil
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// ServerMessage returns the message the backend put in the error body,
// or "" when it sent none. It satisfies apperror.PayloadError.
func (e *StatusError) ServerMessage() string {
	return e.message
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// serverMessage extracts a human-readable message from an error body.
//
// Precedence: a bare JSON string, then a "message" string field, then an
// "error" string field, then the trimmed raw body.
func serverMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if doc.Type == gjson.String {
			return truncate(doc.String())
		}
		for _, key := range []string{"message", "error"} {
			if v := doc.Get(key); v.Type == gjson.String && v.String() != "" {
				return truncate(v.String())
			}
		}
	}

	return truncate(string(body))
}

// truncate caps s at maxErrorMessageLen bytes without splitting a
// character. The result lands in user-visible error slots, so invalid
// UTF-8 in the body is replaced as well.
func truncate(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= maxErrorMessageLen {
		return s
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
