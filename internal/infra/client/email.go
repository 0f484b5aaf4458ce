package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// EmailClient sends lead emails and reads the email log.
type EmailClient struct {
	b *Backend
}

// NewEmailClient creates a new EmailClient.
func NewEmailClient(b *Backend) *EmailClient {
	return &EmailClient{b: b}
}

func (c *EmailClient) List(ctx context.Context, q domain.PageQuery) (*domain.PageResponse[domain.EmailLog], error) {
	return get[domain.PageResponse[domain.EmailLog]](ctx, c.b, call{
		resource: "email", op: "list", path: "/email", query: pageQuery(q.Page, q.Size),
	})
}

func (c *EmailClient) Get(ctx context.Context, id int64) (*domain.EmailLog, error) {
	return get[domain.EmailLog](ctx, c.b, call{resource: "email", op: "get", path: idPath("/email/%d", id)})
}

func (c *EmailClient) Send(ctx context.Context, req *domain.SendEmailRequest) (*domain.EmailLog, error) {
	return send[domain.EmailLog](ctx, c.b, call{
		resource: "email", op: "send",
		method: http.MethodPost, path: "/email/send", body: req,
	})
}

func (c *EmailClient) ByLead(ctx context.Context, leadID int64) ([]domain.EmailLog, error) {
	return getList[domain.EmailLog](ctx, c.b, call{
		resource: "email", op: "by_lead", path: idPath("/email/lead/%d", leadID),
	})
}
