// Package session owns the browser's auth state: the persisted bearer token
// and the anonymous / loading / authenticated state machine derived from it.
// The store is the only component that clears local auth state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
)

// Identity is the remote identity collaborator.
type Identity interface {
	// Login exchanges credentials for a user and bearer token.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// CurrentUser resolves the user owning token.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	// Forget drops anything cached locally for token. No network call.
	Forget(token string)
}

// Store is the auth session of one browser.
type Store struct {
	mu       sync.Mutex
	tokens   port.TokenStore
	identity Identity
	logger   *zap.Logger
	now      func() time.Time

	state domain.SessionState
	user  *domain.User
	token string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore derives the initial state from the persisted token alone: a token
// means loading, no token means anonymous. No network call is made.
func NewStore(ctx context.Context, tokens port.TokenStore, identity Identity, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		tokens:   tokens,
		identity: identity,
		logger:   logger,
		now:      time.Now,
		state:    domain.StateAnonymous,
	}
	for _, opt := range opts {
		opt(s)
	}

	if token, ok := tokens.Load(ctx); ok {
		s.token = token
		s.state = domain.StateLoading
	}
	return s
}

// Snapshot returns the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Session {
	sess := domain.Session{
		IsLoading:       s.state == domain.StateLoading,
		IsAuthenticated: s.state == domain.StateAuthenticated,
	}
	if s.state == domain.StateAuthenticated {
		u := *s.user
		sess.User = &u
		sess.Token = s.token
	}
	return sess
}

// Token returns the bearer token while authenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateAuthenticated {
		return ""
	}
	return s.token
}

// Login authenticates with the identity collaborator. On failure the
// collaborator's error is returned unchanged and nothing is persisted.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.state = domain.StateLoading
	s.mu.Unlock()

	user, token, err := s.identity.Login(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.resetLocked()
		return err
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.logger.Error("persist token failed", zap.Error(err))
		s.resetLocked()
		return err
	}

	s.token = token
	s.user = user
	s.state = domain.StateAuthenticated
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

// Logout clears the persisted token and local state. No network call.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

// Expire reacts to a 401 from any backend call. Same effect as Logout.
func (s *Store) Expire(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.logger.Info("session expired", zap.Int64("user_id", s.user.ID))
	}
	s.clearLocked(ctx)
}

// CheckAuth validates the persisted token. Missing or locally expired tokens
// never reach the network; any failure of the identity call clears the token
// (fail closed, no retry).
func (s *Store) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens.Load(ctx)
	if !ok {
		s.resetLocked()
		return
	}
	if s.expired(token) {
		s.logger.Debug("persisted token expired")
		s.token = token
		s.clearLocked(ctx)
		return
	}

	s.token = token
	s.state = domain.StateLoading

	user, err := s.identity.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Info("token rejected", zap.Error(err))
		s.clearLocked(ctx)
		return
	}

	s.user = user
	s.state = domain.StateAuthenticated
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are left to the backend. The signature is not verified.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}

func (s *Store) clearLocked(ctx context.Context) {
	if s.token != "" {
		s.identity.Forget(s.token)
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("clear token failed", zap.Error(err))
	}
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.state = domain.StateAnonymous
	s.user = nil
	s.token = ""
}
