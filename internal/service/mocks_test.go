package service_test

import (
	"context"
	"sync/atomic"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// --- Mocks ---

type mockLeadsAPI struct {
	page      *domain.PageResponse[domain.Lead]
	lead      *domain.Lead
	err       error
	listCalls atomic.Int32
	created   *domain.CreateLeadRequest
	status    domain.LeadStatus
	activity  *domain.CreateLeadActivityRequest
	imported  *domain.Upload
	importFor *int64
}

func (m *mockLeadsAPI) List(_ context.Context, _ domain.LeadQuery) (*domain.PageResponse[domain.Lead], error) {
	m.listCalls.Add(1)
	return m.page, m.err
}

func (m *mockLeadsAPI) Get(_ context.Context, _ int64) (*domain.Lead, error) {
	return m.lead, m.err
}

func (m *mockLeadsAPI) Create(_ context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	m.created = req
	return &domain.Lead{ID: 99, Name: req.Name, Status: domain.LeadNew}, m.err
}

func (m *mockLeadsAPI) Update(_ context.Context, id int64, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	return &domain.Lead{ID: id, Name: req.Name}, m.err
}

func (m *mockLeadsAPI) Delete(_ context.Context, _ int64) error {
	return m.err
}

func (m *mockLeadsAPI) Import(_ context.Context, file *domain.Upload, defaultAgentID *int64) (*domain.ImportLeadsResult, error) {
	m.imported, m.importFor = file, defaultAgentID
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ImportLeadsResult{Count: 2}, nil
}

func (m *mockLeadsAPI) UpdateStatus(_ context.Context, id int64, status domain.LeadStatus) (*domain.Lead, error) {
	m.status = status
	return &domain.Lead{ID: id, Status: status}, m.err
}

func (m *mockLeadsAPI) Assign(_ context.Context, id, agentID int64) (*domain.Lead, error) {
	return &domain.Lead{ID: id, AssignedAgentID: &agentID}, m.err
}

func (m *mockLeadsAPI) Activities(_ context.Context, id int64) ([]domain.LeadActivity, error) {
	return []domain.LeadActivity{{ID: 1, LeadID: id, Type: domain.ActivityNote}}, nil
}

func (m *mockLeadsAPI) AddActivity(_ context.Context, id int64, req *domain.CreateLeadActivityRequest) (*domain.LeadActivity, error) {
	m.activity = req
	return &domain.LeadActivity{ID: 2, LeadID: id, Type: req.Type, Payload: req.Payload}, m.err
}

type mockSchedulerAPI struct {
	tasks     []domain.CallTask
	err       error
	scheduled *domain.ScheduleCallRequest
	updated   *domain.UpdateCallTaskRequest
	notes     string
	calls     atomic.Int32
}

func (m *mockSchedulerAPI) Pending(_ context.Context) ([]domain.CallTask, error) {
	m.calls.Add(1)
	return m.tasks, m.err
}

func (m *mockSchedulerAPI) Today(_ context.Context) ([]domain.CallTask, error) {
	m.calls.Add(1)
	return m.tasks, m.err
}

func (m *mockSchedulerAPI) Get(_ context.Context, id int64) (*domain.CallTask, error) {
	return &domain.CallTask{ID: id}, m.err
}

func (m *mockSchedulerAPI) Schedule(_ context.Context, req *domain.ScheduleCallRequest) (*domain.CallTask, error) {
	m.scheduled = req
	return &domain.CallTask{ID: 7, LeadID: req.LeadID, Status: domain.TaskPending}, m.err
}

func (m *mockSchedulerAPI) Update(_ context.Context, id int64, req *domain.UpdateCallTaskRequest) (*domain.CallTask, error) {
	m.updated = req
	return &domain.CallTask{ID: id, Status: req.Status}, m.err
}

func (m *mockSchedulerAPI) Delete(_ context.Context, _ int64) error {
	return m.err
}

func (m *mockSchedulerAPI) Complete(_ context.Context, id int64, notes string) (*domain.CallTask, error) {
	m.notes = notes
	return &domain.CallTask{ID: id, Status: domain.TaskDone, Notes: notes}, m.err
}

func (m *mockSchedulerAPI) ByLead(_ context.Context, _ int64) ([]domain.CallTask, error) {
	return m.tasks, m.err
}

type mockVoiceAPI struct {
	sessions []domain.VoiceSession
	err      error
	needsErr error
}

func (m *mockVoiceAPI) Start(_ context.Context, req *domain.StartVoiceSessionRequest) (*domain.VoiceSession, error) {
	return &domain.VoiceSession{ID: 5, LeadID: req.LeadID, Status: "IN_PROGRESS"}, m.err
}

func (m *mockVoiceAPI) Get(_ context.Context, id int64) (*domain.VoiceSession, error) {
	return &domain.VoiceSession{ID: id, Status: "COMPLETED"}, nil
}

func (m *mockVoiceAPI) Stop(_ context.Context, id int64) (*domain.VoiceSession, error) {
	return &domain.VoiceSession{ID: id, Status: "COMPLETED"}, m.err
}

func (m *mockVoiceAPI) Needs(_ context.Context, _ int64) (map[string]any, error) {
	if m.needsErr != nil {
		return nil, m.needsErr
	}
	return map[string]any{"coverage": "family"}, nil
}

func (m *mockVoiceAPI) Recommendations(_ context.Context, _ int64) (map[string]any, error) {
	return map[string]any{"products": []any{"Term Life"}}, nil
}

func (m *mockVoiceAPI) ByLead(_ context.Context, _ int64) ([]domain.VoiceSession, error) {
	return m.sessions, m.err
}

type mockProspectusAPI struct {
	err error
}

func (m *mockProspectusAPI) Get(_ context.Context, id int64) (*domain.Prospectus, error) {
	return &domain.Prospectus{ID: id}, m.err
}

func (m *mockProspectusAPI) Generate(_ context.Context, req *domain.GenerateProspectusRequest) (*domain.Prospectus, error) {
	return &domain.Prospectus{ID: 3, LeadID: req.LeadID}, m.err
}

func (m *mockProspectusAPI) Download(_ context.Context, _ int64) (*domain.Download, error) {
	return &domain.Download{ContentType: "application/pdf", Body: []byte("%PDF")}, m.err
}

func (m *mockProspectusAPI) ByLead(_ context.Context, _ int64) ([]domain.Prospectus, error) {
	return nil, m.err
}

type mockEmailAPI struct {
	err  error
	sent *domain.SendEmailRequest
}

func (m *mockEmailAPI) List(_ context.Context, _ domain.PageQuery) (*domain.PageResponse[domain.EmailLog], error) {
	return &domain.PageResponse[domain.EmailLog]{}, m.err
}

func (m *mockEmailAPI) Get(_ context.Context, id int64) (*domain.EmailLog, error) {
	return &domain.EmailLog{ID: id}, m.err
}

func (m *mockEmailAPI) Send(_ context.Context, req *domain.SendEmailRequest) (*domain.EmailLog, error) {
	m.sent = req
	return &domain.EmailLog{ID: 11, LeadID: req.LeadID, Status: "SENT"}, m.err
}

func (m *mockEmailAPI) ByLead(_ context.Context, _ int64) ([]domain.EmailLog, error) {
	return nil, m.err
}

type mockAdminAPI struct {
	users    []domain.User
	stats    *domain.DashboardStats
	statsErr error
	err      error
	deleted  []int64
	created  *domain.CreateUserRequest
}

func (m *mockAdminAPI) Users(_ context.Context, _ domain.PageQuery) ([]domain.User, error) {
	return m.users, m.err
}

func (m *mockAdminAPI) User(_ context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id}, m.err
}

func (m *mockAdminAPI) CreateUser(_ context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	m.created = req
	return &domain.User{ID: 42, Name: req.Name, Email: req.Email, Role: req.Role}, m.err
}

func (m *mockAdminAPI) UpdateUser(_ context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	return &domain.User{ID: id, Name: req.Name, Email: req.Email, Role: req.Role}, m.err
}

func (m *mockAdminAPI) DeleteUser(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockAdminAPI) ResetPassword(_ context.Context, _ int64, _ *domain.ResetPasswordRequest) error {
	return m.err
}

func (m *mockAdminAPI) Settings(_ context.Context) ([]domain.AdminSetting, error) {
	return []domain.AdminSetting{{Key: "smtp.host", Value: "mail"}}, m.err
}

func (m *mockAdminAPI) Setting(_ context.Context, key string) (*domain.AdminSetting, error) {
	return &domain.AdminSetting{Key: key}, m.err
}

func (m *mockAdminAPI) UpdateSetting(_ context.Context, key string, req *domain.UpdateAdminSettingRequest) (*domain.AdminSetting, error) {
	return &domain.AdminSetting{Key: key, Value: req.Value}, m.err
}

func (m *mockAdminAPI) Audit(_ context.Context, _ domain.AuditQuery) (*domain.PageResponse[domain.AuditLog], error) {
	return &domain.PageResponse[domain.AuditLog]{}, m.err
}

func (m *mockAdminAPI) Stats(_ context.Context) (*domain.DashboardStats, error) {
	return m.stats, m.statsErr
}

type mockCatalogAPI struct {
	products    []domain.Product
	categories  []domain.Category
	byCategory  atomic.Int64
	err         error
	createdProd *domain.ProductRequest
	deletedCat  []int64
	deletedDocs []int64
	uploaded    *domain.Upload
	uploadedTo  [2]int64
}

func (m *mockCatalogAPI) List(_ context.Context, _ domain.ProductQuery) ([]domain.Product, error) {
	return m.products, m.err
}

func (m *mockCatalogAPI) Get(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, m.err
		}
	}
	return &domain.Product{ID: id}, m.err
}

func (m *mockCatalogAPI) Create(_ context.Context, req *domain.ProductRequest) (*domain.Product, error) {
	m.createdProd = req
	return &domain.Product{ID: 8, Name: req.Name, Tags: req.Tags}, m.err
}

func (m *mockCatalogAPI) Update(_ context.Context, id int64, req *domain.ProductRequest) (*domain.Product, error) {
	return &domain.Product{ID: id, Name: req.Name}, m.err
}

func (m *mockCatalogAPI) Delete(_ context.Context, _ int64) error {
	return m.err
}

func (m *mockCatalogAPI) ByCategory(_ context.Context, categoryID int64) ([]domain.Product, error) {
	m.byCategory.Store(categoryID)
	var out []domain.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, m.err
}

func (m *mockCatalogAPI) Documents(_ context.Context, productID int64) ([]domain.ProductDocument, error) {
	return []domain.ProductDocument{{ID: 1, ProductID: productID, Filename: "terms.pdf"}}, m.err
}

func (m *mockCatalogAPI) UploadDocument(_ context.Context, productID, categoryID int64, file *domain.Upload) (*domain.ProductDocument, error) {
	m.uploaded, m.uploadedTo = file, [2]int64{productID, categoryID}
	return &domain.ProductDocument{ID: 5, ProductID: productID, Filename: file.Filename}, m.err
}

func (m *mockCatalogAPI) DownloadDocument(_ context.Context, id int64) (*domain.Download, error) {
	return &domain.Download{ContentType: "application/pdf", Body: []byte("%PDF")}, m.err
}

func (m *mockCatalogAPI) DeleteDocument(_ context.Context, id int64) error {
	m.deletedDocs = append(m.deletedDocs, id)
	return m.err
}

// mockCategoriesAPI shares state with mockCatalogAPI.
type mockCategoriesAPI struct {
	*mockCatalogAPI
}

func (m mockCategoriesAPI) List(_ context.Context) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m mockCategoriesAPI) Get(_ context.Context, id int64) (*domain.Category, error) {
	return &domain.Category{ID: id}, m.err
}

func (m mockCategoriesAPI) Create(_ context.Context, req *domain.CategoryRequest) (*domain.Category, error) {
	return &domain.Category{ID: 4, Name: req.Name}, m.err
}

func (m mockCategoriesAPI) Update(_ context.Context, id int64, req *domain.CategoryRequest) (*domain.Category, error) {
	return &domain.Category{ID: id, Name: req.Name}, m.err
}

func (m mockCategoriesAPI) Delete(_ context.Context, id int64) error {
	m.deletedCat = append(m.deletedCat, id)
	return m.err
}
