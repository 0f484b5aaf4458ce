// Package service holds the page-level use cases of the CRM web client:
// cached reads through the query layer, form validation, and mutations that
// invalidate the affected queries.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/infra/cache"
	"github.com/boddenberg/insurance-crm-web/internal/infra/client"
	"github.com/boddenberg/insurance-crm-web/internal/port"
)

var tracer = otel.Tracer("service")

// AuthService is the identity collaborator of the session store.
type AuthService struct {
	api    port.AuthAPI
	users  *cache.InMemory[*domain.User]
	logger *zap.Logger
}

// NewAuthService creates a new auth service. Resolved identities are cached
// per token for identityTTL to spare a /auth/me round trip on every page.
func NewAuthService(api port.AuthAPI, identityTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		api:    api,
		users:  cache.New[*domain.User](identityTTL),
		logger: logger,
	}
}

// ============================================================
// Login: POST /auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, "", &domain.ErrValidation{Field: "email", Message: "Email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", &domain.ErrValidation{Field: "email", Message: "Enter a valid email address"}
	}
	if password == "" {
		return nil, "", &domain.ErrValidation{Field: "password", Message: "Password is required"}
	}

	resp, err := s.api.Login(ctx, &domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, "", err
	}
	if resp.Token == "" {
		return nil, "", &domain.ErrUnauthorized{Message: "Login response carried no token"}
	}

	user := resp.User()
	s.users.Set(tokenKey(resp.Token), user)
	return user, resp.Token, nil
}

// ============================================================
// CurrentUser: GET /auth/me
// ============================================================

func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	key := tokenKey(token)
	if u, ok := s.users.Get(key); ok {
		return u, nil
	}

	user, err := s.api.Me(client.WithToken(ctx, token))
	if err != nil {
		return nil, err
	}
	s.users.Set(key, user)
	return user, nil
}

// Forget drops the cached identity for token.
func (s *AuthService) Forget(token string) {
	s.users.Delete(tokenKey(token))
}

// Close stops the identity cache janitor.
func (s *AuthService) Close() {
	s.users.Close()
}

// tokenKey hashes a bearer token for use as a cache key.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
