package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// LeadsClient manages leads on the backend.
type LeadsClient struct {
	b *Backend
}

// NewLeadsClient creates a new LeadsClient.
func NewLeadsClient(b *Backend) *LeadsClient {
	return &LeadsClient{b: b}
}

// List returns one page of leads. The backend filters by the caller's role.
func (c *LeadsClient) List(ctx context.Context, q domain.LeadQuery) (*domain.PageResponse[domain.Lead], error) {
	params := pageQuery(q.Page, q.Size)
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	return get[domain.PageResponse[domain.Lead]](ctx, c.b, call{
		resource: "leads", op: "list", path: "/leads", query: params,
	})
}

func (c *LeadsClient) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	return get[domain.Lead](ctx, c.b, call{resource: "leads", op: "get", path: idPath("/leads/%d", id)})
}

func (c *LeadsClient) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	return send[domain.Lead](ctx, c.b, call{
		resource: "leads", op: "create",
		method: http.MethodPost, path: "/leads", body: req,
	})
}

func (c *LeadsClient) Update(ctx context.Context, id int64, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	return send[domain.Lead](ctx, c.b, call{
		resource: "leads", op: "update",
		method: http.MethodPut, path: idPath("/leads/%d", id), body: req,
	})
}

func (c *LeadsClient) Delete(ctx context.Context, id int64) error {
	return c.b.do(ctx, call{
		resource: "leads", op: "delete",
		method: http.MethodDelete, path: idPath("/leads/%d", id),
	}, nil)
}

// Import bulk-creates leads from a CSV file. Admin only on the backend.
func (c *LeadsClient) Import(ctx context.Context, file *domain.Upload, defaultAgentID *int64) (*domain.ImportLeadsResult, error) {
	params := url.Values{}
	if defaultAgentID != nil {
		params.Set("defaultAgentId", strconv.FormatInt(*defaultAgentID, 10))
	}
	return send[domain.ImportLeadsResult](ctx, c.b, call{
		resource: "leads", op: "import",
		method: http.MethodPost, path: "/leads/import", query: params, file: file,
	})
}

// UpdateStatus moves a lead to another pipeline column.
func (c *LeadsClient) UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) (*domain.Lead, error) {
	return send[domain.Lead](ctx, c.b, call{
		resource: "leads", op: "update_status",
		method: http.MethodPut, path: idPath("/leads/%d/status", id),
		query: url.Values{"status": {string(status)}},
	})
}

// Assign hands a lead to another agent.
func (c *LeadsClient) Assign(ctx context.Context, id, agentID int64) (*domain.Lead, error) {
	return send[domain.Lead](ctx, c.b, call{
		resource: "leads", op: "assign",
		method: http.MethodPut, path: idPath("/leads/%d/assign", id),
		query: url.Values{"agentId": {strconv.FormatInt(agentID, 10)}},
	})
}

func (c *LeadsClient) Activities(ctx context.Context, id int64) ([]domain.LeadActivity, error) {
	return getList[domain.LeadActivity](ctx, c.b, call{
		resource: "leads", op: "activities", path: idPath("/leads/%d/activities", id),
	})
}

func (c *LeadsClient) AddActivity(ctx context.Context, id int64, req *domain.CreateLeadActivityRequest) (*domain.LeadActivity, error) {
	return send[domain.LeadActivity](ctx, c.b, call{
		resource: "leads", op: "add_activity",
		method: http.MethodPost, path: idPath("/leads/%d/activities", id), body: req,
	})
}
