// Package session owns the client's authenticated identity: the bearer
// token and the user it belongs to.
//
// STATE vs MANAGER:
//   - State is the in-memory session context. It is created once per client
//     (or once per test) and injected wherever identity is needed: the
//     remote gateway reads the token from it on every request, the tracker
//     store reads the user ID from it to filter applications.
//   - Manager is the only writer. Login, signup, restore and logout all go
//     through it, and it always writes token and user together, both in
//     memory and in the persisted copy.
//
// There is no package-level session: two States never share anything, so
// tests can run isolated sessions side by side.
package session

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/remote"
)

// State is the current session: a token and the user it resolves to.
//
// Invariant: token and user are either both set or both absent once any
// Manager operation has returned.
type State struct {
	mu    sync.RWMutex
	token string
	user  *model.User
}

// NewState returns an empty (anonymous) session.
func NewState() *State {
	return &State{}
}

// Token implements oauth2.TokenSource. With no token held it returns
// remote.ErrNoToken, which the remote transport treats as "send no
// Authorization header".
func (s *State) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil, remote.ErrNoToken
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// UserID returns the session user's ID, if a user is resolved.
func (s *State) UserID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0, false
	}
	return s.user.ID, true
}

// User returns a copy of the session user, or nil.
func (s *State) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// RawToken returns the bearer token, or "".
func (s *State) RawToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated is derived on every call from token and user presence.
func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// set commits token and user in one step.
func (s *State) set(token string, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
}

func (s *State) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}
