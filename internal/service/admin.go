package service

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// MinPasswordLength applies to created users and password resets.
const MinPasswordLength = 6

// AdminService backs the user management, settings and audit pages.
type AdminService struct {
	api     port.AdminAPI
	queries *query.Client
	logger  *zap.Logger
}

func NewAdminService(api port.AdminAPI, queries *query.Client, logger *zap.Logger) *AdminService {
	return &AdminService{api: api, queries: queries, logger: logger}
}

// ============================================================
// Users
// ============================================================

func (s *AdminService) Users(ctx context.Context, q domain.PageQuery) ([]domain.User, error) {
	return query.Fetch(ctx, s.queries, query.K(ResUsers, "list", q.Page, q.Size), func(ctx context.Context) ([]domain.User, error) {
		return s.api.Users(ctx, q)
	})
}

func (s *AdminService) User(ctx context.Context, id int64) (*domain.User, error) {
	return query.Fetch(ctx, s.queries, query.K(ResUsers, "get", id), func(ctx context.Context) (*domain.User, error) {
		return s.api.User(ctx, id)
	})
}

// Agents lists users holding the AGENT role, for assignment pickers.
func (s *AdminService) Agents(ctx context.Context) ([]domain.User, error) {
	users, err := s.Users(ctx, domain.PageQuery{})
	if err != nil {
		return nil, err
	}
	agents := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Role == domain.RoleAgent {
			agents = append(agents, u)
		}
	}
	return agents, nil
}

func (s *AdminService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AdminService.CreateUser")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateUser(req.Name, req.Email, req.Role); err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: "Password must be at least 6 characters"}
	}

	u, err := s.api.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	s.queries.Invalidate(ResUsers, ResAudit)
	return u, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AdminService.UpdateUser")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateUser(req.Name, req.Email, req.Role); err != nil {
		return nil, err
	}

	u, err := s.api.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResUsers, ResAudit)
	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	s.queries.Invalidate(ResUsers, ResAudit)
	return nil
}

func (s *AdminService) ResetPassword(ctx context.Context, id int64, password string) error {
	if len(password) < MinPasswordLength {
		return &domain.ErrValidation{Field: "newPassword", Message: "Password must be at least 6 characters"}
	}
	if err := s.api.ResetPassword(ctx, id, &domain.ResetPasswordRequest{NewPassword: password}); err != nil {
		return err
	}
	s.queries.Invalidate(ResAudit)
	return nil
}

func validateUser(name, email string, role domain.Role) error {
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "Name is required"}
	}
	if email == "" {
		return &domain.ErrValidation{Field: "email", Message: "Email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &domain.ErrValidation{Field: "email", Message: "Enter a valid email address"}
	}
	if role != domain.RoleAgent && role != domain.RoleAdmin {
		return &domain.ErrValidation{Field: "role", Message: "Select a role"}
	}
	return nil
}

// ============================================================
// Settings & audit
// ============================================================

func (s *AdminService) Settings(ctx context.Context) ([]domain.AdminSetting, error) {
	return query.Fetch(ctx, s.queries, query.K(ResSettings, "list"), s.api.Settings)
}

func (s *AdminService) UpdateSetting(ctx context.Context, key, value string) (*domain.AdminSetting, error) {
	ctx, span := tracer.Start(ctx, "AdminService.UpdateSetting")
	defer span.End()

	if strings.TrimSpace(key) == "" {
		return nil, &domain.ErrValidation{Field: "key", Message: "Setting key is required"}
	}
	st, err := s.api.UpdateSetting(ctx, key, &domain.UpdateAdminSettingRequest{Value: value})
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResSettings, ResAudit)
	return st, nil
}

// Audit lists audit entries with the filters forwarded to the backend.
func (s *AdminService) Audit(ctx context.Context, q domain.AuditQuery) (*domain.PageResponse[domain.AuditLog], error) {
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	q.Action = strings.TrimSpace(q.Action)
	q.Entity = strings.TrimSpace(q.Entity)
	return query.Fetch(ctx, s.queries, query.K(ResAudit, q.Page, q.Size, q.UserID, q.Action, q.Entity),
		func(ctx context.Context) (*domain.PageResponse[domain.AuditLog], error) {
			return s.api.Audit(ctx, q)
		})
}
