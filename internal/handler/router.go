package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/guard"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
	"github.com/boddenberg/insurance-crm-web/internal/service"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps is everything the router needs. Limiter may be nil.
type Deps struct {
	Leads     *service.LeadService
	Scheduler *service.SchedulerService
	Dashboard *service.DashboardService
	Catalog   *service.CatalogService
	Outreach  *service.OutreachService
	Admin     *service.AdminService

	Views       *view.Renderer
	Persistence session.Persistence
	Identity    session.Identity
	Limiter     port.RateLimiter
	Queries     *query.Client
	Metrics     *observability.Metrics
	Checks      []HealthCheck
}

// NewRouter creates the HTTP router with all pages and middleware.
func NewRouter(d Deps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Handle("/static/*", d.Views.Static())

	// --- Pages ---
	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(d.Persistence, d.Identity, logger))

		r.Get("/", homeHandler())
		r.Get("/login", loginPageHandler(d.Views))
		r.Post("/login", loginSubmitHandler(d.Limiter, d.Views, d.Metrics, logger))
		r.Get("/logout", expiredHandler())
		r.Post("/logout", logoutHandler(d.Queries, logger))

		r.Route("/agent", func(r chi.Router) {
			r.Use(RequireSession(false, d.Views, logger))
			agentRoutes(r, d, logger)
			r.NotFound(redirectTo(guard.AgentHomePath))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireSession(true, d.Views, logger))
			adminRoutes(r, d, logger)
			r.NotFound(redirectTo(guard.AdminHomePath))
		})
	})

	r.NotFound(redirectTo("/"))

	return r
}

func agentRoutes(r chi.Router, d Deps, logger *zap.Logger) {
	r.Get("/dashboard", agentDashboardHandler(d.Dashboard, d.Views, logger))

	// =============================================
	// Leads
	// =============================================
	r.Get("/leads", leadsListHandler(d.Leads, d.Views, logger))
	r.Post("/leads", createLeadHandler(d.Leads, d.Views, logger))
	r.Get("/leads/new", newLeadHandler(d.Views))
	r.Route("/leads/{id}", func(r chi.Router) {
		r.Get("/", leadDetailHandler(d.Leads, d.Admin, d.Views, logger))
		r.Get("/edit", editLeadHandler(d.Leads, d.Views, logger))
		r.Post("/edit", updateLeadHandler(d.Leads, d.Views, logger))
		r.Post("/status", leadStatusHandler(d.Leads, toID("/agent/leads/%d"), logger))
		r.Post("/assign", assignLeadHandler(d.Leads, logger))
		r.Post("/notes", addNoteHandler(d.Leads, logger))
		r.Post("/voice", startVoiceHandler(d.Outreach, logger))
		r.Post("/prospectus", generateProspectusHandler(d.Outreach, logger))
		r.Get("/schedule", scheduleFormHandler(d.Views))
		r.Post("/schedule", scheduleCallHandler(d.Scheduler, d.Views, logger))
		r.Get("/email", emailFormHandler(d.Leads, d.Views, logger))
		r.Post("/email", sendEmailHandler(d.Outreach, d.Views, logger))
		r.Get("/delete", confirmDeleteHandler(d.Views, "leads", "lead", toID("/agent/leads/%d")))
		r.Post("/delete", deleteHandler(d.Leads.Delete, toID("/agent/leads/%d"), to("/agent/leads"), logger))
	})

	// =============================================
	// Kanban & calendar
	// =============================================
	r.Get("/kanban", kanbanHandler(d.Leads, d.Views, logger))
	r.Post("/kanban/{id}/move", leadStatusHandler(d.Leads, to("/agent/kanban"), logger))

	r.Get("/calendar", calendarHandler(d.Scheduler, d.Views, logger))
	r.Post("/calendar/{id}/complete", completeTaskHandler(d.Scheduler, logger))
	r.Post("/calendar/{id}/cancel", cancelTaskHandler(d.Scheduler, logger))
	r.Get("/calendar/{id}/delete", confirmDeleteHandler(d.Views, "calendar", "call task", to("/agent/calendar")))
	r.Post("/calendar/{id}/delete", deleteHandler(d.Scheduler.Delete, to("/agent/calendar"), to("/agent/calendar"), logger))

	// =============================================
	// Voice, prospectus, products, emails
	// =============================================
	r.Get("/voice-sessions/{id}", voiceSessionHandler(d.Outreach, d.Views, logger))
	r.Post("/voice-sessions/{id}/stop", stopVoiceHandler(d.Outreach, logger))
	r.Get("/prospectus/{id}", prospectusHandler(d.Outreach, d.Views, logger))
	r.Get("/prospectus/{id}/download", downloadProspectusHandler(d.Outreach, logger))
	r.Get("/products", productsHandler(d.Catalog, d.Views, logger))
	r.Get("/emails", emailsHandler(d.Outreach, d.Views, logger))
}

func adminRoutes(r chi.Router, d Deps, logger *zap.Logger) {
	r.Get("/dashboard", adminDashboardHandler(d.Dashboard, d.Views, logger))

	// =============================================
	// Users
	// =============================================
	r.Get("/users", usersHandler(d.Admin, d.Views, logger))
	r.Post("/users", createUserHandler(d.Admin, d.Views, logger))
	r.Get("/users/new", newUserHandler(d.Views))
	r.Get("/users/{id}/edit", editUserHandler(d.Admin, d.Views, logger))
	r.Post("/users/{id}/edit", updateUserHandler(d.Admin, d.Views, logger))
	r.Get("/users/{id}/password", passwordFormHandler(d.Views))
	r.Post("/users/{id}/password", resetPasswordHandler(d.Admin, d.Views, logger))
	r.Get("/users/{id}/delete", confirmDeleteHandler(d.Views, "users", "user", to("/admin/users")))
	r.Post("/users/{id}/delete", deleteHandler(d.Admin.DeleteUser, to("/admin/users"), to("/admin/users"), logger))

	// =============================================
	// Catalog
	// =============================================
	r.Get("/products", adminProductsHandler(d.Catalog, d.Views, logger))
	r.Post("/products", createProductHandler(d.Catalog, d.Views, logger))
	r.Get("/products/new", newProductHandler(d.Catalog, d.Views, logger))
	r.Get("/products/{id}/edit", editProductHandler(d.Catalog, d.Views, logger))
	r.Post("/products/{id}/edit", updateProductHandler(d.Catalog, d.Views, logger))
	r.Get("/products/{id}/delete", confirmDeleteHandler(d.Views, "admin_products", "product", to("/admin/products")))
	r.Post("/products/{id}/delete", deleteHandler(d.Catalog.DeleteProduct, to("/admin/products"), to("/admin/products"), logger))

	r.Get("/categories", categoriesHandler(d.Catalog, d.Views, logger))
	r.Post("/categories", createCategoryHandler(d.Catalog, d.Views, logger))
	r.Get("/categories/new", newCategoryHandler(d.Views))
	r.Get("/categories/{id}/edit", editCategoryHandler(d.Catalog, d.Views, logger))
	r.Post("/categories/{id}/edit", updateCategoryHandler(d.Catalog, d.Views, logger))
	r.Get("/categories/{id}/delete", confirmDeleteHandler(d.Views, "categories", "category", to("/admin/categories")))
	r.Post("/categories/{id}/delete", deleteHandler(d.Catalog.DeleteCategory, to("/admin/categories"), to("/admin/categories"), logger))

	r.Post("/products/{id}/documents", uploadDocumentHandler(d.Catalog, logger))
	r.Get("/documents", documentsHandler(d.Catalog, d.Views, logger))
	r.Get("/documents/{id}/download", downloadDocumentHandler(d.Catalog, logger))
	r.Get("/documents/{id}/delete", confirmDeleteHandler(d.Views, "documents", "document", documentsOf))
	r.Post("/documents/{id}/delete", deleteHandler(d.Catalog.DeleteDocument, documentsOf, documentsOf, logger))

	r.Get("/leads/import", importLeadsFormHandler(d.Admin, d.Views, logger))
	r.Post("/leads/import", importLeadsHandler(d.Leads, d.Admin, d.Views, logger))

	// =============================================
	// System
	// =============================================
	r.Get("/config", configHandler(d.Admin, d.Views, logger))
	r.Post("/config", updateSettingHandler(d.Admin, logger))
	r.Get("/audit", auditHandler(d.Admin, d.Views, logger))
}

// homeHandler sends the browser to the landing page for its session.
func homeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r.Context()); u != nil {
			redirect(w, r, guard.Home(u))
			return
		}
		redirect(w, r, guard.LoginPath)
	}
}

func redirectTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect(w, r, path)
	}
}

// ============================================================
// Health
// ============================================================

const healthCheckTimeout = 2 * time.Second

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "crmweb", Status: "healthy", LastChecked: now},
		}

		overall := "healthy"
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			start := time.Now()
			err := c.Check(ctx)
			cancel()

			sh := domain.ServiceHealth{
				Name:        c.Name,
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				sh.Status = "degraded"
				sh.Detail = err.Error()
				overall = "degraded"
			}
			services = append(services, sh)
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
