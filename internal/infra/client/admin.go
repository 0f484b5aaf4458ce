package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// AdminClient covers the back-office endpoints. The backend rejects
// non-admin tokens with 403.
type AdminClient struct {
	b *Backend
}

// NewAdminClient creates a new AdminClient.
func NewAdminClient(b *Backend) *AdminClient {
	return &AdminClient{b: b}
}

// ============================================================
// Users
// ============================================================

// Users lists users. The endpoint returns a bare array, not a page envelope.
func (c *AdminClient) Users(ctx context.Context, q domain.PageQuery) ([]domain.User, error) {
	return getList[domain.User](ctx, c.b, call{
		resource: "admin", op: "users", path: "/admin/users", query: pageQuery(q.Page, q.Size),
	})
}

func (c *AdminClient) User(ctx context.Context, id int64) (*domain.User, error) {
	return get[domain.User](ctx, c.b, call{resource: "admin", op: "user", path: idPath("/admin/users/%d", id)})
}

func (c *AdminClient) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	return send[domain.User](ctx, c.b, call{
		resource: "admin", op: "create_user",
		method: http.MethodPost, path: "/admin/users", body: req,
	})
}

func (c *AdminClient) UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	return send[domain.User](ctx, c.b, call{
		resource: "admin", op: "update_user",
		method: http.MethodPut, path: idPath("/admin/users/%d", id), body: req,
	})
}

func (c *AdminClient) DeleteUser(ctx context.Context, id int64) error {
	return c.b.do(ctx, call{
		resource: "admin", op: "delete_user",
		method: http.MethodDelete, path: idPath("/admin/users/%d", id),
	}, nil)
}

func (c *AdminClient) ResetPassword(ctx context.Context, id int64, req *domain.ResetPasswordRequest) error {
	return c.b.do(ctx, call{
		resource: "admin", op: "reset_password",
		method: http.MethodPost, path: idPath("/admin/users/%d/reset-password", id), body: req,
	}, nil)
}

// ============================================================
// Settings
// ============================================================

func (c *AdminClient) Settings(ctx context.Context) ([]domain.AdminSetting, error) {
	return getList[domain.AdminSetting](ctx, c.b, call{resource: "admin", op: "settings", path: "/admin/settings"})
}

func (c *AdminClient) Setting(ctx context.Context, key string) (*domain.AdminSetting, error) {
	return get[domain.AdminSetting](ctx, c.b, call{resource: "admin", op: "setting", path: idPath("/admin/settings/%s", key)})
}

func (c *AdminClient) UpdateSetting(ctx context.Context, key string, req *domain.UpdateAdminSettingRequest) (*domain.AdminSetting, error) {
	return send[domain.AdminSetting](ctx, c.b, call{
		resource: "admin", op: "update_setting",
		method: http.MethodPut, path: idPath("/admin/settings/%s", key), body: req,
	})
}

// ============================================================
// Audit & stats
// ============================================================

func (c *AdminClient) Audit(ctx context.Context, q domain.AuditQuery) (*domain.PageResponse[domain.AuditLog], error) {
	params := pageQuery(q.Page, q.Size)
	if q.UserID > 0 {
		params.Set("userId", strconv.FormatInt(q.UserID, 10))
	}
	if q.Action != "" {
		params.Set("action", q.Action)
	}
	if q.Entity != "" {
		params.Set("entity", q.Entity)
	}
	return get[domain.PageResponse[domain.AuditLog]](ctx, c.b, call{
		resource: "admin", op: "audit", path: "/admin/audit", query: params,
	})
}

func (c *AdminClient) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	return get[domain.DashboardStats](ctx, c.b, call{resource: "admin", op: "stats", path: "/admin/stats"})
}
