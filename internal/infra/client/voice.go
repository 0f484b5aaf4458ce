package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// VoiceClient drives AI voice sessions. Payloads produced by the voice
// pipeline (needs, recommendations) are passed through as opaque JSON.
type VoiceClient struct {
	b *Backend
}

// NewVoiceClient creates a new VoiceClient.
func NewVoiceClient(b *Backend) *VoiceClient {
	return &VoiceClient{b: b}
}

func (c *VoiceClient) Start(ctx context.Context, req *domain.StartVoiceSessionRequest) (*domain.VoiceSession, error) {
	return send[domain.VoiceSession](ctx, c.b, call{
		resource: "voice", op: "start",
		method: http.MethodPost, path: "/voice/sessions/start", body: req,
	})
}

func (c *VoiceClient) Get(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	return get[domain.VoiceSession](ctx, c.b, call{resource: "voice", op: "get", path: idPath("/voice/sessions/%d", id)})
}

func (c *VoiceClient) Stop(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	return send[domain.VoiceSession](ctx, c.b, call{
		resource: "voice", op: "stop",
		method: http.MethodPost, path: idPath("/voice/sessions/%d/stop", id),
	})
}

func (c *VoiceClient) Needs(ctx context.Context, id int64) (map[string]any, error) {
	out, err := get[map[string]any](ctx, c.b, call{resource: "voice", op: "needs", path: idPath("/voice/sessions/%d/needs", id)})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *VoiceClient) Recommendations(ctx context.Context, id int64) (map[string]any, error) {
	out, err := get[map[string]any](ctx, c.b, call{
		resource: "voice", op: "recommendations", path: idPath("/voice/sessions/%d/recommendations", id),
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *VoiceClient) ByLead(ctx context.Context, leadID int64) ([]domain.VoiceSession, error) {
	return getList[domain.VoiceSession](ctx, c.b, call{
		resource: "voice", op: "by_lead", path: idPath("/voice/sessions/lead/%d", leadID),
	})
}
