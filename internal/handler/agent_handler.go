package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/service"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

// ============================================================
// Dashboard
// ============================================================

func agentDashboardHandler(svc *service.DashboardService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "agent_dashboard", layout(r, "Dashboard", "agent_dashboard"))
		dash, err := svc.Agent(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(dash)
	}
}

// ============================================================
// Leads
// ============================================================

type leadsPage struct {
	Page     *domain.PageResponse[domain.Lead]
	Query    domain.LeadQuery
	Statuses []view.Option
	Prev     string
	Next     string
}

func leadsListHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := domain.LeadQuery{
			Page:   queryInt(r, "page", 0),
			Size:   service.DefaultPageSize,
			Status: domain.LeadStatus(r.URL.Query().Get("status")),
			Search: r.URL.Query().Get("search"),
		}

		page := views.Begin(w, "leads", layout(r, "Leads", "leads"))
		leads, err := svc.List(r.Context(), q)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		data := leadsPage{Page: leads, Query: q, Statuses: view.StatusOptions()}
		data.Prev, data.Next = pageLinks(r, leads.Number, leads.TotalPages)
		page.Content(data)
	}
}

func leadForm(title, action, submit, cancel string, withStatus bool) view.Form {
	fields := []view.Field{
		{Name: "name", Label: "Name", Type: view.Text, Required: true},
		{Name: "email", Label: "Email", Type: view.Email, Required: true},
		{Name: "phone", Label: "Phone", Type: view.Text, Required: true},
		{Name: "leadSource", Label: "Source", Type: view.Text},
		{Name: "location", Label: "Location", Type: view.Text},
	}
	if withStatus {
		fields = append(fields, view.Field{Name: "status", Label: "Status", Type: view.Select, Options: view.StatusOptions()})
	} else {
		fields = append(fields, view.Field{Name: "age", Label: "Age", Type: view.Number})
	}
	fields = append(fields, view.Field{Name: "notes", Label: "Notes", Type: view.TextArea})
	return view.Form{Title: title, Action: action, Submit: submit, Cancel: cancel, Fields: fields}
}

func newLeadHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := leadForm("New lead", "/agent/leads", "Create lead", "/agent/leads", false)
		views.Render(w, http.StatusOK, "form", layout(r, "New lead", "leads"), form)
	}
}

func createLeadHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /agent/leads")
		defer span.End()

		r.ParseForm()
		lead, err := svc.Create(ctx, &domain.CreateLeadRequest{
			Name:       r.PostFormValue("name"),
			Email:      r.PostFormValue("email"),
			Phone:      r.PostFormValue("phone"),
			LeadSource: r.PostFormValue("leadSource"),
			Location:   r.PostFormValue("location"),
			Notes:      r.PostFormValue("notes"),
			Age:        optionalInt(r.PostFormValue("age")),
		})
		if err != nil {
			form := leadForm("New lead", "/agent/leads", "Create lead", "/agent/leads", false)
			renderFormError(w, r, views, layout(r, "New lead", "leads"), form, err, logger)
			return
		}
		redirect(w, r, fmt.Sprintf("/agent/leads/%d", lead.ID))
	}
}

type leadDetailPage struct {
	Detail   *service.LeadDetail
	Error    string
	Statuses []view.Option
	// Agents fills the assignment picker. Only admins may list users, so
	// agents assign by id.
	Agents []view.Option
}

func leadDetailHandler(svc *service.LeadService, admin *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		// Sub-action failures come back as ?error and are shown inside the page.
		l := layout(r, "Lead", "leads")
		l.Flash = r.URL.Query().Get("notice")

		page := views.Begin(w, "lead_detail", l)
		detail, err := svc.Detail(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		data := leadDetailPage{
			Detail:   detail,
			Error:    r.URL.Query().Get("error"),
			Statuses: view.StatusOptions(),
		}
		if u := currentUser(r.Context()); u != nil && u.IsAdmin() {
			agents, err := agentsFor(r, admin, logger)
			if err != nil {
				handlePageError(r, page, err, logger)
				return
			}
			data.Agents = view.UserOptions(agents)
		}
		page.Content(data)
	}
}

func editLeadHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		back := fmt.Sprintf("/agent/leads/%d", id)
		page := views.Begin(w, "form", layout(r, "Edit lead", "leads"))
		lead, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}

		form := leadForm("Edit "+lead.Name, back+"/edit", "Save", back, true)
		form.Values = url.Values{
			"name":       {lead.Name},
			"email":      {lead.Email},
			"phone":      {lead.Phone},
			"leadSource": {lead.LeadSource},
			"location":   {lead.Location},
			"status":     {string(lead.Status)},
			"notes":      {lead.Notes},
		}
		page.Content(form)
	}
}

func updateLeadHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		r.ParseForm()
		back := fmt.Sprintf("/agent/leads/%d", id)
		_, err = svc.Update(r.Context(), id, &domain.UpdateLeadRequest{
			Name:       r.PostFormValue("name"),
			Email:      r.PostFormValue("email"),
			Phone:      r.PostFormValue("phone"),
			Status:     domain.LeadStatus(r.PostFormValue("status")),
			Location:   submitted(r, "location"),
			LeadSource: submitted(r, "leadSource"),
			Notes:      submitted(r, "notes"),
		})
		if err != nil {
			form := leadForm("Edit lead", back+"/edit", "Save", back, true)
			renderFormError(w, r, views, layout(r, "Edit lead", "leads"), form, err, logger)
			return
		}
		redirect(w, r, back)
	}
}

func leadStatusHandler(svc *service.LeadService, back target, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if _, err := svc.MoveStatus(r.Context(), id, domain.LeadStatus(r.PostFormValue("status"))); err != nil {
			handleMutationError(w, r, back(r, id), err, logger)
			return
		}
		redirect(w, r, back(r, id))
	}
}

func assignLeadHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		back := fmt.Sprintf("/agent/leads/%d", id)
		if _, err := svc.Assign(r.Context(), id, formInt64(r, "agentId")); err != nil {
			handleMutationError(w, r, back, err, logger)
			return
		}
		redirect(w, r, back)
	}
}

func addNoteHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		back := fmt.Sprintf("/agent/leads/%d", id)
		if _, err := svc.AddNote(r.Context(), id, r.PostFormValue("note")); err != nil {
			handleMutationError(w, r, back, err, logger)
			return
		}
		redirect(w, r, back)
	}
}

// ============================================================
// Scheduling & email from the lead page
// ============================================================

func scheduleForm(leadID int64) view.Form {
	back := fmt.Sprintf("/agent/leads/%d", leadID)
	return view.Form{
		Title:  "Schedule call",
		Action: back + "/schedule",
		Submit: "Schedule",
		Cancel: back,
		Fields: []view.Field{
			{Name: "scheduledTime", Label: "Date and time", Type: view.DateTime},
			{Name: "usePreferredTimeWindow", Label: "Use the lead's preferred time window", Type: view.Checkbox},
			{Name: "notes", Label: "Notes", Type: view.TextArea},
		},
	}
}

func scheduleFormHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		views.Render(w, http.StatusOK, "form", layout(r, "Schedule call", "calendar"), scheduleForm(id))
	}
}

func scheduleCallHandler(svc *service.SchedulerService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		r.ParseForm()
		req := &domain.ScheduleCallRequest{
			LeadID:                 id,
			ScheduledTime:          r.PostFormValue("scheduledTime"),
			Notes:                  r.PostFormValue("notes"),
			UsePreferredTimeWindow: r.PostFormValue("usePreferredTimeWindow") != "",
		}
		if u := currentUser(r.Context()); u != nil {
			req.AgentID = u.ID
		}
		if _, err := svc.Schedule(r.Context(), req); err != nil {
			renderFormError(w, r, views, layout(r, "Schedule call", "calendar"), scheduleForm(id), err, logger)
			return
		}
		redirect(w, r, fmt.Sprintf("/agent/leads/%d?notice=%s", id, url.QueryEscape("Call scheduled")))
	}
}

func emailForm(leadID int64) view.Form {
	back := fmt.Sprintf("/agent/leads/%d", leadID)
	return view.Form{
		Title:  "Send email",
		Action: back + "/email",
		Submit: "Send",
		Cancel: back,
		Fields: []view.Field{
			{Name: "toEmail", Label: "To", Type: view.Email, Required: true},
			{Name: "subject", Label: "Subject", Type: view.Text, Required: true},
			{Name: "body", Label: "Message", Type: view.TextArea, Required: true},
			{Name: "prospectusId", Type: view.Hidden},
		},
	}
}

func emailFormHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		page := views.Begin(w, "form", layout(r, "Send email", "emails"))
		lead, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}

		form := emailForm(id)
		form.Title = "Email " + lead.Name
		form.Values = url.Values{"toEmail": {lead.Email}}
		if p := optionalInt64(r.URL.Query().Get("prospectusId")); p != nil {
			form.Values.Set("prospectusId", strconv.FormatInt(*p, 10))
			form.Values.Set("subject", "Your insurance prospectus")
			form.Fields[2].Help = "The prospectus PDF is attached."
		}
		page.Content(form)
	}
}

func sendEmailHandler(svc *service.OutreachService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		ctx, span := tracer.Start(r.Context(), "POST /agent/leads/{id}/email")
		defer span.End()

		r.ParseForm()
		req := &domain.SendEmailRequest{
			LeadID:       id,
			ToEmail:      r.PostFormValue("toEmail"),
			Subject:      r.PostFormValue("subject"),
			Body:         r.PostFormValue("body"),
			ProspectusID: optionalInt64(r.PostFormValue("prospectusId")),
		}
		if u := currentUser(ctx); u != nil {
			req.AgentID = u.ID
		}
		if _, err := svc.SendEmail(ctx, req); err != nil {
			renderFormError(w, r, views, layout(r, "Send email", "emails"), emailForm(id), err, logger)
			return
		}
		redirect(w, r, fmt.Sprintf("/agent/leads/%d?notice=%s", id, url.QueryEscape("Email sent")))
	}
}

// ============================================================
// Voice sessions & prospectus
// ============================================================

func startVoiceHandler(svc *service.OutreachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		vs, err := svc.StartVoice(r.Context(), id)
		if err != nil {
			handleMutationError(w, r, fmt.Sprintf("/agent/leads/%d", id), err, logger)
			return
		}
		redirect(w, r, fmt.Sprintf("/agent/voice-sessions/%d", vs.ID))
	}
}

func voiceSessionHandler(svc *service.OutreachService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page := views.Begin(w, "voice", layout(r, "Voice session", "leads"))
		detail, err := svc.Voice(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(detail)
	}
}

func stopVoiceHandler(svc *service.OutreachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		back := fmt.Sprintf("/agent/voice-sessions/%d", id)
		if _, err := svc.StopVoice(r.Context(), id); err != nil {
			handleMutationError(w, r, back, err, logger)
			return
		}
		redirect(w, r, back)
	}
}

func generateProspectusHandler(svc *service.OutreachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		p, err := svc.GenerateProspectus(r.Context(), id, optionalInt64(r.PostFormValue("voiceSessionId")))
		if err != nil {
			handleMutationError(w, r, fmt.Sprintf("/agent/leads/%d", id), err, logger)
			return
		}
		redirect(w, r, fmt.Sprintf("/agent/prospectus/%d", p.ID))
	}
}

func prospectusHandler(svc *service.OutreachService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page := views.Begin(w, "prospectus", layout(r, "Prospectus", "leads"))
		p, err := svc.Prospectus(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(p)
	}
}

func downloadProspectusHandler(svc *service.OutreachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		dl, err := svc.DownloadProspectus(r.Context(), id)
		if err != nil {
			handleMutationError(w, r, fmt.Sprintf("/agent/prospectus/%d", id), err, logger)
			return
		}
		writeDownload(w, dl, "application/pdf", fmt.Sprintf("attachment; filename=prospectus-%d.pdf", id))
	}
}

// ============================================================
// Kanban
// ============================================================

type kanbanPage struct {
	Columns  []service.KanbanColumn
	Statuses []view.Option
}

func kanbanHandler(svc *service.LeadService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "kanban", layout(r, "Kanban Board", "kanban"))
		columns, err := svc.Kanban(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(kanbanPage{Columns: columns, Statuses: view.StatusOptions()})
	}
}

// ============================================================
// Calendar
// ============================================================

func calendarHandler(svc *service.SchedulerService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "calendar", layout(r, "Call Calendar", "calendar"))
		tasks, err := svc.Calendar(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(tasks)
	}
}

func completeTaskHandler(svc *service.SchedulerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if _, err := svc.Complete(r.Context(), id, r.PostFormValue("notes")); err != nil {
			handleMutationError(w, r, "/agent/calendar", err, logger)
			return
		}
		redirect(w, r, "/agent/calendar")
	}
}

func cancelTaskHandler(svc *service.SchedulerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if _, err := svc.Cancel(r.Context(), id); err != nil {
			handleMutationError(w, r, "/agent/calendar", err, logger)
			return
		}
		redirect(w, r, "/agent/calendar")
	}
}

// ============================================================
// Products & emails
// ============================================================

func productsHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "products", layout(r, "Products", "products"))
		catalog, err := svc.Browse(r.Context(), queryInt64(r, "categoryId"))
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(catalog)
	}
}

type emailsPage struct {
	Page *domain.PageResponse[domain.EmailLog]
	Prev string
	Next string
}

func emailsHandler(svc *service.OutreachService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "emails", layout(r, "Emails", "emails"))
		emails, err := svc.Emails(r.Context(), domain.PageQuery{
			Page: queryInt(r, "page", 0),
			Size: service.DefaultPageSize,
		})
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		data := emailsPage{Page: emails}
		data.Prev, data.Next = pageLinks(r, emails.Number, emails.TotalPages)
		page.Content(data)
	}
}
