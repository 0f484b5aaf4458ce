package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// AuthClient calls the backend identity endpoints.
type AuthClient struct {
	b *Backend
}

// NewAuthClient creates a new AuthClient.
func NewAuthClient(b *Backend) *AuthClient {
	return &AuthClient{b: b}
}

// Login exchanges credentials for a bearer token and the user record.
func (c *AuthClient) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	return send[domain.LoginResponse](ctx, c.b, call{
		resource: "auth", op: "login",
		method: http.MethodPost, path: "/auth/login", body: req,
	})
}

// Me returns the user owning the bearer token in ctx.
func (c *AuthClient) Me(ctx context.Context) (*domain.User, error) {
	return get[domain.User](ctx, c.b, call{resource: "auth", op: "me", path: "/auth/me"})
}
