package service

import (
	"context"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// OutreachService covers what an agent does with a lead after the first
// contact: voice sessions, prospectus documents and emails.
type OutreachService struct {
	voice      port.VoiceAPI
	prospectus port.ProspectusAPI
	email      port.EmailAPI
	queries    *query.Client
	logger     *zap.Logger
}

func NewOutreachService(voice port.VoiceAPI, prospectus port.ProspectusAPI, email port.EmailAPI, queries *query.Client, logger *zap.Logger) *OutreachService {
	return &OutreachService{voice: voice, prospectus: prospectus, email: email, queries: queries, logger: logger}
}

// ============================================================
// Voice sessions
// ============================================================

// VoiceDetail is a session with its extraction results. Needs and
// Recommendations stay nil while the backend has not produced them.
type VoiceDetail struct {
	Session         *domain.VoiceSession
	Needs           map[string]any
	Recommendations map[string]any
}

// Voice loads the session, then needs and recommendations concurrently.
// Missing extraction results (404) are not an error.
func (s *OutreachService) Voice(ctx context.Context, id int64) (*VoiceDetail, error) {
	ctx, span := tracer.Start(ctx, "OutreachService.Voice")
	defer span.End()
	span.SetAttributes(attribute.Int64("voice.id", id))

	sess, err := query.Fetch(ctx, s.queries, query.K(ResVoice, "get", id), func(ctx context.Context) (*domain.VoiceSession, error) {
		return s.voice.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	d := &VoiceDetail{Session: sess}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResVoice, "needs", id), func(ctx context.Context) (map[string]any, error) {
			return s.voice.Needs(ctx, id)
		})
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		d.Needs = v
		return nil
	})
	g.Go(func() error {
		v, err := query.Fetch(gCtx, s.queries, query.K(ResVoice, "recommendations", id), func(ctx context.Context) (map[string]any, error) {
			return s.voice.Recommendations(ctx, id)
		})
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		d.Recommendations = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *OutreachService) StartVoice(ctx context.Context, leadID int64) (*domain.VoiceSession, error) {
	ctx, span := tracer.Start(ctx, "OutreachService.StartVoice")
	defer span.End()

	if leadID <= 0 {
		return nil, &domain.ErrValidation{Field: "leadId", Message: "Lead is required"}
	}
	sess, err := s.voice.Start(ctx, &domain.StartVoiceSessionRequest{LeadID: leadID})
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResVoice)
	return sess, nil
}

func (s *OutreachService) StopVoice(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	sess, err := s.voice.Stop(ctx, id)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResVoice, ResLeads)
	return sess, nil
}

// ============================================================
// Prospectus
// ============================================================

func (s *OutreachService) Prospectus(ctx context.Context, id int64) (*domain.Prospectus, error) {
	return query.Fetch(ctx, s.queries, query.K(ResProspectus, "get", id), func(ctx context.Context) (*domain.Prospectus, error) {
		return s.prospectus.Get(ctx, id)
	})
}

// GenerateProspectus asks the backend for a new prospectus version, optionally
// built from a voice session.
func (s *OutreachService) GenerateProspectus(ctx context.Context, leadID int64, voiceSessionID *int64) (*domain.Prospectus, error) {
	ctx, span := tracer.Start(ctx, "OutreachService.GenerateProspectus")
	defer span.End()

	if leadID <= 0 {
		return nil, &domain.ErrValidation{Field: "leadId", Message: "Lead is required"}
	}
	p, err := s.prospectus.Generate(ctx, &domain.GenerateProspectusRequest{LeadID: leadID, VoiceSessionID: voiceSessionID})
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResProspectus, ResLeads)
	return p, nil
}

// DownloadProspectus fetches the PDF. Downloads bypass the query cache.
func (s *OutreachService) DownloadProspectus(ctx context.Context, id int64) (*domain.Download, error) {
	ctx, span := tracer.Start(ctx, "OutreachService.DownloadProspectus")
	defer span.End()
	return s.prospectus.Download(ctx, id)
}

// ============================================================
// Email
// ============================================================

func (s *OutreachService) Emails(ctx context.Context, q domain.PageQuery) (*domain.PageResponse[domain.EmailLog], error) {
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	return query.Fetch(ctx, s.queries, query.K(ResEmails, "list", q.Page, q.Size), func(ctx context.Context) (*domain.PageResponse[domain.EmailLog], error) {
		return s.email.List(ctx, q)
	})
}

func (s *OutreachService) SendEmail(ctx context.Context, req *domain.SendEmailRequest) (*domain.EmailLog, error) {
	ctx, span := tracer.Start(ctx, "OutreachService.SendEmail")
	defer span.End()

	req.ToEmail = strings.TrimSpace(req.ToEmail)
	req.Subject = strings.TrimSpace(req.Subject)
	switch {
	case req.LeadID <= 0:
		return nil, &domain.ErrValidation{Field: "leadId", Message: "Lead is required"}
	case req.ToEmail == "":
		return nil, &domain.ErrValidation{Field: "toEmail", Message: "Recipient is required"}
	case req.Subject == "":
		return nil, &domain.ErrValidation{Field: "subject", Message: "Subject is required"}
	case strings.TrimSpace(req.Body) == "":
		return nil, &domain.ErrValidation{Field: "body", Message: "Message is required"}
	}
	if _, err := mail.ParseAddress(req.ToEmail); err != nil {
		return nil, &domain.ErrValidation{Field: "toEmail", Message: "Enter a valid email address"}
	}
	if req.ProspectusID != nil {
		req.AttachProspectus = true
	}

	log, err := s.email.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResEmails, ResLeads)
	return log, nil
}
