// Package session holds the logged-in user and the token sent with every
// API call.
package session

import (
	"context"
	"sync"

	"github.com/okian/ech0client/internal/domain/model"
	"github.com/okian/ech0client/pkg/logger"
	"github.com/okian/ech0client/pkg/metrics"
)

// Store is an in-memory session. It is safe for concurrent use; readers
// get a consistent snapshot of the token for the duration of one call.
type Store struct {
	mu   sync.RWMutex
	user *model.User
	log  logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for session changes.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an empty session store.
func New(opts ...Option) *Store {
	s := &Store{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the current token, or "" when nobody is logged in.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Token
}

// User returns a copy of the logged-in user.
func (s *Store) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// LoggedIn reports whether a token is held.
func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Set replaces the session with user. A user without a token clears it.
func (s *Store) Set(ctx context.Context, user model.User) {
	if user.Token == "" {
		s.Clear(ctx)
		return
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	metrics.RecordSessionChange("login")
	s.log.Info(ctx, "session started", logger.String("username", user.Username), logger.Bool("admin", user.IsAdmin))
}

// Clear drops the session.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if had {
		metrics.RecordSessionChange("logout")
		s.log.Info(ctx, "session cleared")
	}
}
