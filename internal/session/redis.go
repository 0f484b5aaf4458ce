package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/port"
)

// SessionBackend stores tokens server-side under opaque ids.
// Implemented by redisstore.Sessions.
type SessionBackend interface {
	Get(ctx context.Context, id string) (string, bool, error)
	Put(ctx context.Context, id, token string) error
	Delete(ctx context.Context, id string) error
}

// ServerPersistence keeps only a random session id in the cookie.
type ServerPersistence struct {
	backend SessionBackend
	opts    CookieOptions
	logger  *zap.Logger
}

// NewServerPersistence creates a ServerPersistence.
func NewServerPersistence(backend SessionBackend, opts CookieOptions, logger *zap.Logger) *ServerPersistence {
	return &ServerPersistence{backend: backend, opts: opts, logger: logger}
}

func (p *ServerPersistence) For(w http.ResponseWriter, r *http.Request) port.TokenStore {
	return &serverTokens{p: p, w: w, r: r}
}

type serverTokens struct {
	p *ServerPersistence
	w http.ResponseWriter
	r *http.Request

	written  bool
	override string
}

func (s *serverTokens) sessionID() string {
	ck, err := s.r.Cookie(s.p.opts.Name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(ck.Value); err != nil {
		return ""
	}
	return ck.Value
}

// Load treats backend errors as a missing token so the browser is sent to
// the login page rather than shown a broken session.
func (s *serverTokens) Load(ctx context.Context) (string, bool) {
	if s.written {
		return s.override, s.override != ""
	}
	id := s.sessionID()
	if id == "" {
		return "", false
	}
	token, ok, err := s.p.backend.Get(ctx, id)
	if err != nil {
		s.p.logger.Warn("session lookup failed", zap.Error(err))
		return "", false
	}
	return token, ok
}

func (s *serverTokens) Save(ctx context.Context, token string) error {
	if old := s.sessionID(); old != "" {
		_ = s.p.backend.Delete(ctx, old)
	}
	id := uuid.NewString()
	if err := s.p.backend.Put(ctx, id, token); err != nil {
		return err
	}
	s.p.opts.write(s.w, id)
	s.written, s.override = true, token
	return nil
}

func (s *serverTokens) Clear(ctx context.Context) error {
	var err error
	if id := s.sessionID(); id != "" {
		err = s.p.backend.Delete(ctx, id)
	}
	s.p.opts.clear(s.w)
	s.written, s.override = true, ""
	return err
}
