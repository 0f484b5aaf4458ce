package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// ProspectusClient generates and fetches prospectus documents.
type ProspectusClient struct {
	b *Backend
}

// NewProspectusClient creates a new ProspectusClient.
func NewProspectusClient(b *Backend) *ProspectusClient {
	return &ProspectusClient{b: b}
}

func (c *ProspectusClient) Get(ctx context.Context, id int64) (*domain.Prospectus, error) {
	return get[domain.Prospectus](ctx, c.b, call{resource: "prospectus", op: "get", path: idPath("/prospectus/%d", id)})
}

func (c *ProspectusClient) Generate(ctx context.Context, req *domain.GenerateProspectusRequest) (*domain.Prospectus, error) {
	return send[domain.Prospectus](ctx, c.b, call{
		resource: "prospectus", op: "generate",
		method: http.MethodPost, path: "/prospectus/generate", body: req,
	})
}

// Download fetches the rendered PDF.
func (c *ProspectusClient) Download(ctx context.Context, id int64) (*domain.Download, error) {
	return c.b.download(ctx, call{
		resource: "prospectus", op: "download",
		method: http.MethodGet, path: idPath("/prospectus/%d/download", id),
	})
}

func (c *ProspectusClient) ByLead(ctx context.Context, leadID int64) ([]domain.Prospectus, error) {
	return getList[domain.Prospectus](ctx, c.b, call{
		resource: "prospectus", op: "by_lead", path: idPath("/prospectus/lead/%d", leadID),
	})
}
