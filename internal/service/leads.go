package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// Query resources. Mutations invalidate by these names.
const (
	ResLeads      = "leads"
	ResTasks      = "tasks"
	ResProducts   = "products"
	ResCategories = "categories"
	ResDocuments  = "documents"
	ResVoice      = "voice"
	ResProspectus = "prospectus"
	ResEmails     = "emails"
	ResUsers      = "users"
	ResSettings   = "settings"
	ResAudit      = "audit"
	ResStats      = "stats"
)

// KanbanPageSize is how many leads the kanban board loads at once.
const KanbanPageSize = 100

// DefaultPageSize applies when a list request carries no size.
const DefaultPageSize = 20

// LeadService serves the lead list, detail and kanban pages.
type LeadService struct {
	leads      port.LeadsAPI
	scheduler  port.SchedulerAPI
	voice      port.VoiceAPI
	prospectus port.ProspectusAPI
	email      port.EmailAPI
	queries    *query.Client
	logger     *zap.Logger
}

// NewLeadService creates the lead service with all dependencies injected.
func NewLeadService(
	leads port.LeadsAPI,
	scheduler port.SchedulerAPI,
	voice port.VoiceAPI,
	prospectus port.ProspectusAPI,
	email port.EmailAPI,
	queries *query.Client,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leads:      leads,
		scheduler:  scheduler,
		voice:      voice,
		prospectus: prospectus,
		email:      email,
		queries:    queries,
		logger:     logger,
	}
}

// LeadDetail aggregates everything shown on the lead page. Sections that
// failed to load carry their message in SectionErrors.
type LeadDetail struct {
	Lead          *domain.Lead
	VoiceSessions []domain.VoiceSession
	Emails        []domain.EmailLog
	Prospectuses  []domain.Prospectus
	Activities    []domain.LeadActivity
	Tasks         []domain.CallTask
	SectionErrors map[string]string
}

// ============================================================
// Reads
// ============================================================

// List returns one page of leads with the filters forwarded to the backend.
func (s *LeadService) List(ctx context.Context, q domain.LeadQuery) (*domain.PageResponse[domain.Lead], error) {
	ctx, span := tracer.Start(ctx, "LeadService.List")
	defer span.End()

	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}
	return query.Fetch(ctx, s.queries, query.K(ResLeads, "list", q.Page, q.Size, q.Status, q.Search),
		func(ctx context.Context) (*domain.PageResponse[domain.Lead], error) {
			return s.leads.List(ctx, q)
		})
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	return query.Fetch(ctx, s.queries, query.K(ResLeads, "get", id), func(ctx context.Context) (*domain.Lead, error) {
		return s.leads.Get(ctx, id)
	})
}

// Detail loads the lead first, then every lead-keyed section concurrently.
// A 401 from any section fails the whole page so the session can expire.
func (s *LeadService) Detail(ctx context.Context, id int64) (*LeadDetail, error) {
	ctx, span := tracer.Start(ctx, "LeadService.Detail")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &LeadDetail{Lead: lead, SectionErrors: map[string]string{}}
	var sections sectionErrors
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResVoice, "lead", id), func(ctx context.Context) ([]domain.VoiceSession, error) {
			return s.voice.ByLead(ctx, id)
		})
		d.VoiceSessions = v
		return sections.record("voice", err)
	})
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResEmails, "lead", id), func(ctx context.Context) ([]domain.EmailLog, error) {
			return s.email.ByLead(ctx, id)
		})
		d.Emails = v
		return sections.record("emails", err)
	})
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResProspectus, "lead", id), func(ctx context.Context) ([]domain.Prospectus, error) {
			return s.prospectus.ByLead(ctx, id)
		})
		d.Prospectuses = v
		return sections.record("prospectus", err)
	})
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResLeads, "activities", id), func(ctx context.Context) ([]domain.LeadActivity, error) {
			return s.leads.Activities(ctx, id)
		})
		d.Activities = v
		return sections.record("activities", err)
	})
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResTasks, "lead", id), func(ctx context.Context) ([]domain.CallTask, error) {
			return s.scheduler.ByLead(ctx, id)
		})
		d.Tasks = v
		return sections.record("tasks", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for name, err := range sections.errs {
		s.logger.Warn("lead section failed", zap.Int64("lead_id", id), zap.String("section", name), zap.Error(err))
		d.SectionErrors[name] = domain.ErrorMessage(err)
	}
	return d, nil
}

// Kanban loads up to KanbanPageSize leads grouped by pipeline status.
func (s *LeadService) Kanban(ctx context.Context) ([]KanbanColumn, error) {
	ctx, span := tracer.Start(ctx, "LeadService.Kanban")
	defer span.End()

	page, err := s.List(ctx, domain.LeadQuery{Size: KanbanPageSize})
	if err != nil {
		return nil, err
	}
	return GroupByStatus(page.Content), nil
}

// ============================================================
// Mutations
// ============================================================

func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.Create")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateLead(req.Name, req.Email, req.Phone); err != nil {
		return nil, err
	}

	lead, err := s.leads.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResLeads, ResStats)
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, id int64, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.Update")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateLead(req.Name, req.Email, req.Phone); err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "Unknown lead status"}
	}

	lead, err := s.leads.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResLeads, ResStats)
	return lead, nil
}

func (s *LeadService) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "LeadService.Delete")
	defer span.End()

	if err := s.leads.Delete(ctx, id); err != nil {
		return err
	}
	s.queries.Invalidate(ResLeads, ResTasks, ResStats)
	return nil
}

// Import bulk-creates leads from a CSV file, optionally assigning them all
// to one agent.
func (s *LeadService) Import(ctx context.Context, file *domain.Upload, defaultAgentID *int64) (*domain.ImportLeadsResult, error) {
	ctx, span := tracer.Start(ctx, "LeadService.Import")
	defer span.End()

	if err := requireFile(file); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		return nil, &domain.ErrValidation{Field: "file", Message: "File must be a CSV"}
	}

	res, err := s.leads.Import(ctx, file, defaultAgentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("leads imported", zap.Int("count", res.Count))
	s.queries.Invalidate(ResLeads, ResStats)
	return res, nil
}

// MoveStatus moves a lead to another pipeline column.
func (s *LeadService) MoveStatus(ctx context.Context, id int64, status domain.LeadStatus) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.MoveStatus")
	defer span.End()

	if !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "Unknown lead status"}
	}
	lead, err := s.leads.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResLeads, ResStats)
	return lead, nil
}

func (s *LeadService) Assign(ctx context.Context, id, agentID int64) (*domain.Lead, error) {
	if agentID <= 0 {
		return nil, &domain.ErrValidation{Field: "agentId", Message: "Select an agent"}
	}
	lead, err := s.leads.Assign(ctx, id, agentID)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResLeads)
	return lead, nil
}

// AddNote appends a NOTE activity to the lead timeline.
func (s *LeadService) AddNote(ctx context.Context, id int64, text string) (*domain.LeadActivity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ErrValidation{Field: "note", Message: "Note cannot be empty"}
	}
	act, err := s.leads.AddActivity(ctx, id, &domain.CreateLeadActivityRequest{
		Type:    domain.ActivityNote,
		Payload: map[string]any{"text": text},
	})
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResLeads)
	return act, nil
}

func validateLead(name, email, phone string) error {
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "Name is required"}
	}
	if email == "" {
		return &domain.ErrValidation{Field: "email", Message: "Email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &domain.ErrValidation{Field: "email", Message: "Enter a valid email address"}
	}
	if phone == "" {
		return &domain.ErrValidation{Field: "phone", Message: "Phone is required"}
	}
	return nil
}

func requireFile(file *domain.Upload) error {
	if file == nil || file.Filename == "" || len(file.Body) == 0 {
		return &domain.ErrValidation{Field: "file", Message: "Choose a file to upload"}
	}
	return nil
}

// sectionErrors collects non-fatal failures of the detail sections.
type sectionErrors struct {
	mu   sync.Mutex
	errs map[string]error
}

// record keeps err for the section. Unauthorized errors and cancellations
// are returned so they abort the whole group.
func (s *sectionErrors) record(name string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsUnauthorized(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs == nil {
		s.errs = map[string]error{}
	}
	s.errs[name] = err
	return nil
}
