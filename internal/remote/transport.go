package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request correlation ID. The reference
// backend's chi RequestID middleware picks it up and logs it.
const RequestIDHeader = "X-Request-ID"

// ErrNoToken is what a TokenSource returns when the session is anonymous.
// The transport then sends the request without an Authorization header.
// Any other TokenSource error fails the request.
//
// WHY A SENTINEL AND NOT (nil, nil)?
// oauth2.TokenSource promises a token or an error. Wrappers such as
// oauth2.ReuseTokenSource dereference a nil token returned without an
// error, so "anonymous" has to travel as an error value.
var ErrNoToken = errors.New("remote: no bearer token")

// contextKey is unexported so only this package can set a token override.
type contextKey string

const tokenOverrideKey contextKey = "tokenOverride"

// WithToken returns a context whose requests carry token instead of the one
// the session currently holds. The session manager uses it to resolve
// /auth/me for a freshly issued token before committing the session, so the
// client never exposes a token-without-user state.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey, token)
}

// TokenFromContext returns the override set by WithToken, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenOverrideKey).(string)
	return tok, ok
}

// bearerTransport is the outgoing-request augmentation hook.
//
// It reads the token at request time (not at construction time), so a
// login or logout is reflected by the very next request. No token means no
// Authorization header at all: never "Bearer " with an empty value.
//
// The token contract is oauth2.TokenSource, the same interface
// oauth2.NewClient consumes. session.State implements it.
type bearerTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

// RoundTrip implements http.RoundTripper.
//
// RoundTrippers must not modify the caller's request, so we clone it first.
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())

	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, xid.New().String())
	}

	tok, err := t.token(r.Context())
	switch {
	case errors.Is(err, ErrNoToken):
		// anonymous request
	case err != nil:
		return nil, err
	case tok.Valid():
		tok.SetAuthHeader(r)
	}

	return t.base.RoundTrip(r)
}

func (t *bearerTransport) token(ctx context.Context) (*oauth2.Token, error) {
	if raw, ok := TokenFromContext(ctx); ok {
		return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
	}
	if t.source == nil {
		return nil, ErrNoToken
	}
	return t.source.Token()
}
