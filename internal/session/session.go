// Package session holds the bearer credential the client presents to the
// gateway. Acquiring and refreshing tokens happens elsewhere; this package only
// hands the current token out and tears it down when the gateway rejects it.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/model"
)

var ErrNoSession = errors.New("no active session")

type Identity struct {
	UserID string
	Role   model.Role
}

type Session struct {
	mu        sync.Mutex
	token     string
	loggedOut bool
	onLogout  func(returnTo string)
}

// New wraps token. onLogout runs once per teardown with the route the user
// should come back to after signing in again; it may be nil.
func New(token string, onLogout func(returnTo string)) *Session {
	return &Session{token: token, loggedOut: token == "", onLogout: onLogout}
}

func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedOut {
		return "", ErrNoSession
	}
	return s.token, nil
}

// Login installs a fresh token after re-authentication.
func (s *Session) Login(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.loggedOut = token == ""
}

// ForceLogout drops the token and fires the logout hook. Repeated calls for the
// same token are ignored and report false.
func (s *Session) ForceLogout(returnTo string) bool {
	s.mu.Lock()
	if s.loggedOut {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.loggedOut = true
	hook := s.onLogout
	s.mu.Unlock()

	if hook != nil {
		hook(returnTo)
	}
	return true
}

// Identity reads the user_id and role claims without verifying the signature;
// the gateway is the one that verifies.
func (s *Session) Identity() (Identity, error) {
	token, err := s.Token()
	if err != nil {
		return Identity{}, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if !model.Role(role).Valid() {
		return Identity{}, fmt.Errorf("token carries unknown role %q", role)
	}
	return Identity{UserID: userID, Role: model.Role(role)}, nil
}
