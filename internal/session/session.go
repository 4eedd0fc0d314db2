package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shoe_pos/internal/statefile"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const stateKey = "auth"

var ErrNotAuthenticated = errors.New("not logged in")

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Store struct {
	state  *statefile.Store
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current Session
}

// NewStore restores the persisted session, if any.
func NewStore(state *statefile.Store, logger *zap.Logger) (*Store, error) {
	s := &Store{
		state:  state,
		logger: logger.Named("session"),
		now:    time.Now,
	}

	var saved Session
	err := state.Load(stateKey, &saved)
	switch {
	case errors.Is(err, statefile.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("restore session: %w", err)
	default:
		s.current = saved
	}
	return s, nil
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

func (s *Store) Set(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Save(stateKey, sess); err != nil {
		return err
	}
	s.current = sess
	s.logger.Info("session started", zap.String("user_id", sess.User.ID), zap.String("email", sess.User.Email))
	return nil
}

// Clear ends the session on an explicit logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	return s.state.Delete(stateKey)
}

// Expire is the forced logout triggered by the backend rejecting the token.
func (s *Store) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Token == "" {
		return
	}
	userID := s.current.User.ID
	s.current = Session{}
	if err := s.state.Delete(stateKey); err != nil {
		s.logger.Error("failed to drop expired session", zap.Error(err))
	}
	s.logger.Warn("session expired, login required", zap.String("user_id", userID))
}

// Require is the route guard in front of every authenticated command.
func (s *Store) Require() (Session, error) {
	sess := s.Current()
	if strings.TrimSpace(sess.Token) == "" {
		return Session{}, ErrNotAuthenticated
	}
	if expired(sess.Token, s.now()) {
		s.Expire()
		return Session{}, ErrNotAuthenticated
	}
	return sess, nil
}

// expired reports whether a JWT token carries an exp claim in the past.
// Opaque tokens are left for the backend to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
