package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// SchedulerClient manages call tasks.
type SchedulerClient struct {
	b *Backend
}

// NewSchedulerClient creates a new SchedulerClient.
func NewSchedulerClient(b *Backend) *SchedulerClient {
	return &SchedulerClient{b: b}
}

// Pending lists the caller's open call tasks.
func (c *SchedulerClient) Pending(ctx context.Context) ([]domain.CallTask, error) {
	return getList[domain.CallTask](ctx, c.b, call{resource: "scheduler", op: "pending", path: "/scheduler/tasks/pending"})
}

// Today lists the caller's call tasks scheduled for today.
func (c *SchedulerClient) Today(ctx context.Context) ([]domain.CallTask, error) {
	return getList[domain.CallTask](ctx, c.b, call{resource: "scheduler", op: "today", path: "/scheduler/tasks/today"})
}

func (c *SchedulerClient) Get(ctx context.Context, id int64) (*domain.CallTask, error) {
	return get[domain.CallTask](ctx, c.b, call{resource: "scheduler", op: "get", path: idPath("/scheduler/tasks/%d", id)})
}

func (c *SchedulerClient) Schedule(ctx context.Context, req *domain.ScheduleCallRequest) (*domain.CallTask, error) {
	return send[domain.CallTask](ctx, c.b, call{
		resource: "scheduler", op: "schedule",
		method: http.MethodPost, path: "/scheduler/tasks", body: req,
	})
}

func (c *SchedulerClient) Update(ctx context.Context, id int64, req *domain.UpdateCallTaskRequest) (*domain.CallTask, error) {
	return send[domain.CallTask](ctx, c.b, call{
		resource: "scheduler", op: "update",
		method: http.MethodPut, path: idPath("/scheduler/tasks/%d", id), body: req,
	})
}

func (c *SchedulerClient) Delete(ctx context.Context, id int64) error {
	return c.b.do(ctx, call{
		resource: "scheduler", op: "delete",
		method: http.MethodDelete, path: idPath("/scheduler/tasks/%d", id),
	}, nil)
}

// Complete marks a task done, optionally with call notes.
func (c *SchedulerClient) Complete(ctx context.Context, id int64, notes string) (*domain.CallTask, error) {
	var params url.Values
	if notes != "" {
		params = url.Values{"notes": {notes}}
	}
	return send[domain.CallTask](ctx, c.b, call{
		resource: "scheduler", op: "complete",
		method: http.MethodPost, path: idPath("/scheduler/tasks/%d/complete", id), query: params,
	})
}

func (c *SchedulerClient) ByLead(ctx context.Context, leadID int64) ([]domain.CallTask, error) {
	return getList[domain.CallTask](ctx, c.b, call{
		resource: "scheduler", op: "by_lead", path: idPath("/scheduler/tasks/lead/%d", leadID),
	})
}
