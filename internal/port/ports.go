// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service and
// handler layers from the concrete backend client and storage adapters.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// ============================================================
// Backend resources (one HTTP call per method)
// ============================================================

// AuthAPI talks to the identity endpoints.
type AuthAPI interface {
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Me(ctx context.Context) (*domain.User, error)
}

// LeadsAPI manages leads and their activity timeline.
type LeadsAPI interface {
	List(ctx context.Context, q domain.LeadQuery) (*domain.PageResponse[domain.Lead], error)
	Get(ctx context.Context, id int64) (*domain.Lead, error)
	Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error)
	Update(ctx context.Context, id int64, req *domain.UpdateLeadRequest) (*domain.Lead, error)
	Delete(ctx context.Context, id int64) error
	Import(ctx context.Context, file *domain.Upload, defaultAgentID *int64) (*domain.ImportLeadsResult, error)
	UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) (*domain.Lead, error)
	Assign(ctx context.Context, id, agentID int64) (*domain.Lead, error)
	Activities(ctx context.Context, id int64) ([]domain.LeadActivity, error)
	AddActivity(ctx context.Context, id int64, req *domain.CreateLeadActivityRequest) (*domain.LeadActivity, error)
}

// ProductsAPI manages the product catalog and product documents.
type ProductsAPI interface {
	List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, req *domain.ProductRequest) (*domain.Product, error)
	Update(ctx context.Context, id int64, req *domain.ProductRequest) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	ByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	Documents(ctx context.Context, productID int64) ([]domain.ProductDocument, error)
	UploadDocument(ctx context.Context, productID, categoryID int64, file *domain.Upload) (*domain.ProductDocument, error)
	DownloadDocument(ctx context.Context, documentID int64) (*domain.Download, error)
	DeleteDocument(ctx context.Context, documentID int64) error
}

// CategoriesAPI manages product categories.
type CategoriesAPI interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id int64) (*domain.Category, error)
	Create(ctx context.Context, req *domain.CategoryRequest) (*domain.Category, error)
	Update(ctx context.Context, id int64, req *domain.CategoryRequest) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

// SchedulerAPI manages call tasks.
type SchedulerAPI interface {
	Pending(ctx context.Context) ([]domain.CallTask, error)
	Today(ctx context.Context) ([]domain.CallTask, error)
	Get(ctx context.Context, id int64) (*domain.CallTask, error)
	Schedule(ctx context.Context, req *domain.ScheduleCallRequest) (*domain.CallTask, error)
	Update(ctx context.Context, id int64, req *domain.UpdateCallTaskRequest) (*domain.CallTask, error)
	Delete(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, notes string) (*domain.CallTask, error)
	ByLead(ctx context.Context, leadID int64) ([]domain.CallTask, error)
}

// VoiceAPI drives AI voice sessions.
type VoiceAPI interface {
	Start(ctx context.Context, req *domain.StartVoiceSessionRequest) (*domain.VoiceSession, error)
	Get(ctx context.Context, id int64) (*domain.VoiceSession, error)
	Stop(ctx context.Context, id int64) (*domain.VoiceSession, error)
	Needs(ctx context.Context, id int64) (map[string]any, error)
	Recommendations(ctx context.Context, id int64) (map[string]any, error)
	ByLead(ctx context.Context, leadID int64) ([]domain.VoiceSession, error)
}

// ProspectusAPI generates and fetches prospectus documents.
type ProspectusAPI interface {
	Get(ctx context.Context, id int64) (*domain.Prospectus, error)
	Generate(ctx context.Context, req *domain.GenerateProspectusRequest) (*domain.Prospectus, error)
	Download(ctx context.Context, id int64) (*domain.Download, error)
	ByLead(ctx context.Context, leadID int64) ([]domain.Prospectus, error)
}

// EmailAPI sends and lists lead emails.
type EmailAPI interface {
	List(ctx context.Context, q domain.PageQuery) (*domain.PageResponse[domain.EmailLog], error)
	Get(ctx context.Context, id int64) (*domain.EmailLog, error)
	Send(ctx context.Context, req *domain.SendEmailRequest) (*domain.EmailLog, error)
	ByLead(ctx context.Context, leadID int64) ([]domain.EmailLog, error)
}

// AdminAPI covers the back-office endpoints.
type AdminAPI interface {
	Users(ctx context.Context, q domain.PageQuery) ([]domain.User, error)
	User(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ResetPassword(ctx context.Context, id int64, req *domain.ResetPasswordRequest) error
	Settings(ctx context.Context) ([]domain.AdminSetting, error)
	Setting(ctx context.Context, key string) (*domain.AdminSetting, error)
	UpdateSetting(ctx context.Context, key string, req *domain.UpdateAdminSettingRequest) (*domain.AdminSetting, error)
	Audit(ctx context.Context, q domain.AuditQuery) (*domain.PageResponse[domain.AuditLog], error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

// ============================================================
// Local infrastructure
// ============================================================

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string) int
}

// TokenStore persists the bearer token in browser-bound storage.
type TokenStore interface {
	Load(ctx context.Context) (string, bool)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RateLimiter throttles repeated attempts per client key.
type RateLimiter interface {
	// Allow records one attempt and returns false with the remaining block
	// time once the limit is exceeded.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}
