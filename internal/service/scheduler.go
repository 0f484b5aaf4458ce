package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// SchedulerService serves the call calendar and schedules calls.
type SchedulerService struct {
	api     port.SchedulerAPI
	queries *query.Client
	logger  *zap.Logger
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(api port.SchedulerAPI, queries *query.Client, logger *zap.Logger) *SchedulerService {
	return &SchedulerService{api: api, queries: queries, logger: logger}
}

// Calendar returns the caller's open tasks partitioned by status.
func (s *SchedulerService) Calendar(ctx context.Context) (TaskPartitions, error) {
	ctx, span := tracer.Start(ctx, "SchedulerService.Calendar")
	defer span.End()

	tasks, err := query.Fetch(ctx, s.queries, query.K(ResTasks, "pending"), s.api.Pending)
	if err != nil {
		return TaskPartitions{}, err
	}
	return PartitionTasks(tasks), nil
}

// Today returns the caller's tasks for today.
func (s *SchedulerService) Today(ctx context.Context) ([]domain.CallTask, error) {
	return query.Fetch(ctx, s.queries, query.K(ResTasks, "today"), s.api.Today)
}

// Schedule books a call for a lead.
func (s *SchedulerService) Schedule(ctx context.Context, req *domain.ScheduleCallRequest) (*domain.CallTask, error) {
	ctx, span := tracer.Start(ctx, "SchedulerService.Schedule")
	defer span.End()

	if req.LeadID <= 0 {
		return nil, &domain.ErrValidation{Field: "leadId", Message: "Lead is required"}
	}
	req.ScheduledTime = strings.TrimSpace(req.ScheduledTime)
	if req.ScheduledTime == "" && !req.UsePreferredTimeWindow {
		return nil, &domain.ErrValidation{Field: "scheduledTime", Message: "Pick a date and time"}
	}
	if req.ScheduledTime != "" {
		t, ok := domain.ParseTimestamp(req.ScheduledTime)
		if !ok {
			return nil, &domain.ErrValidation{Field: "scheduledTime", Message: "Invalid date and time"}
		}
		req.ScheduledTime = t.Format("2006-01-02T15:04:05")
	}

	task, err := s.api.Schedule(ctx, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResTasks, ResStats)
	return task, nil
}

// Complete marks a task done with optional call notes.
func (s *SchedulerService) Complete(ctx context.Context, id int64, notes string) (*domain.CallTask, error) {
	ctx, span := tracer.Start(ctx, "SchedulerService.Complete")
	defer span.End()

	task, err := s.api.Complete(ctx, id, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResTasks, ResStats, ResLeads)
	return task, nil
}

// Cancel sets a task's status to CANCELLED.
func (s *SchedulerService) Cancel(ctx context.Context, id int64) (*domain.CallTask, error) {
	task, err := s.api.Update(ctx, id, &domain.UpdateCallTaskRequest{Status: domain.TaskCancelled})
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResTasks, ResStats)
	return task, nil
}

func (s *SchedulerService) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	s.queries.Invalidate(ResTasks, ResStats)
	return nil
}
