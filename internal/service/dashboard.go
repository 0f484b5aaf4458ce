package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// MyLeadsSize is how many of the agent's leads the dashboard shows.
const MyLeadsSize = 10

// AgentDashboard is the agent landing page.
type AgentDashboard struct {
	Today      TaskPartitions
	MyLeads    []domain.Lead
	NewLeads   []domain.Lead
	TotalLeads int
}

// AdminDashboard is the admin landing page. Stats is nil when the backend
// could not provide them; StatsError then carries the reason.
type AdminDashboard struct {
	Stats      *domain.DashboardStats
	StatsError string
	Client     *domain.ClientMetrics
}

// DashboardService builds both dashboards.
type DashboardService struct {
	leads     port.LeadsAPI
	scheduler port.SchedulerAPI
	admin     port.AdminAPI
	queries   *query.Client
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	leads port.LeadsAPI,
	scheduler port.SchedulerAPI,
	admin port.AdminAPI,
	queries *query.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		leads:     leads,
		scheduler: scheduler,
		admin:     admin,
		queries:   queries,
		metrics:   metrics,
		logger:    logger,
	}
}

// Agent fetches today's tasks and the agent's leads concurrently.
func (s *DashboardService) Agent(ctx context.Context) (*AgentDashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Agent")
	defer span.End()

	var (
		today []domain.CallTask
		mine  *domain.PageResponse[domain.Lead]
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		today, err = query.Fetch(gCtx, s.queries, query.K(ResTasks, "today"), s.scheduler.Today)
		return err
	})
	g.Go(func() error {
		q := domain.LeadQuery{Size: MyLeadsSize}
		var err error
		mine, err = query.Fetch(gCtx, s.queries, query.K(ResLeads, "list", q.Page, q.Size, q.Status, q.Search),
			func(ctx context.Context) (*domain.PageResponse[domain.Lead], error) {
				return s.leads.List(ctx, q)
			})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &AgentDashboard{
		Today:      PartitionTasks(today),
		MyLeads:    mine.Content,
		NewLeads:   FilterLeads(mine.Content, domain.LeadNew),
		TotalLeads: mine.TotalElements,
	}, nil
}

// Admin fetches the backend stats. A stats failure other than 401 does not
// fail the page; the view shows an info notice instead.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Admin")
	defer span.End()

	d := &AdminDashboard{Client: s.metrics.Snapshot()}

	stats, err := query.Fetch(ctx, s.queries, query.K(ResStats, "admin"), s.admin.Stats)
	switch {
	case err == nil:
		d.Stats = stats
	case domain.IsUnauthorized(err):
		return nil, err
	default:
		s.logger.Info("dashboard stats unavailable", zap.Error(err))
		d.StatsError = domain.ErrorMessage(err)
	}
	return d, nil
}
