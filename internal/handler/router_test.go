package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/handler"
	"github.com/boddenberg/insurance-crm-web/internal/infra/client"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/infra/resilience"
	"github.com/boddenberg/insurance-crm-web/internal/query"
	"github.com/boddenberg/insurance-crm-web/internal/service"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

const (
	agentToken = "tok-agent"
	adminToken = "tok-admin"
)

var (
	agentUser = domain.User{ID: 7, Name: "Ana Agent", Email: "ana@crm.test", Role: domain.RoleAgent}
	adminUser = domain.User{ID: 1, Name: "Root Admin", Email: "root@crm.test", Role: domain.RoleAdmin}
)

// fakeBackend serves the subset of the CRM API the pages under test use.
type fakeBackend struct {
	calls       atomic.Int64
	deletes     atomic.Int64
	leadsStatus atomic.Int64

	mu       sync.Mutex
	received map[string]string
}

// record keeps what a mutating call carried, keyed by "METHOD path".
func (f *fakeBackend) record(r *http.Request, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.received == nil {
		f.received = make(map[string]string)
	}
	f.received[r.Method+" "+r.URL.Path] = detail
}

func (f *fakeBackend) seen(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.received[key]
	return v, ok
}

// recordUpload reads the multipart "file" part and the query string.
func (f *fakeBackend) recordUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBody(w, http.StatusBadRequest, map[string]string{"message": "file part missing"})
		return "", false
	}
	defer file.Close()
	body, _ := io.ReadAll(file)
	f.record(r, header.Filename+"|"+string(body)+"|"+r.URL.RawQuery)
	return header.Filename, true
}

func (f *fakeBackend) countDelete(w http.ResponseWriter, r *http.Request) {
	f.deletes.Add(1)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.calls.Add(1)
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case req.Email == agentUser.Email && req.Password == "secret":
			writeBody(w, http.StatusOK, domain.LoginResponse{Token: agentToken, ID: agentUser.ID, Name: agentUser.Name, Email: agentUser.Email, Role: agentUser.Role})
		case req.Email == adminUser.Email && req.Password == "secret":
			writeBody(w, http.StatusOK, domain.LoginResponse{Token: adminToken, ID: adminUser.ID, Name: adminUser.Name, Email: adminUser.Email, Role: adminUser.Role})
		default:
			writeBody(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		}
	})
	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + agentToken:
			writeBody(w, http.StatusOK, agentUser)
		case "Bearer " + adminToken:
			writeBody(w, http.StatusOK, adminUser)
		default:
			writeBody(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		}
	})
	r.Get("/leads", func(w http.ResponseWriter, r *http.Request) {
		if status := f.leadsStatus.Load(); status != 0 {
			writeBody(w, int(status), map[string]string{"message": "Token expired"})
			return
		}
		writeBody(w, http.StatusOK, domain.PageResponse[domain.Lead]{
			Content: []domain.Lead{
				{ID: 11, Name: "Carla Cliente", Email: "carla@x.test", Status: domain.LeadNew},
				{ID: 12, Name: "Davi Dono", Email: "davi@x.test", Status: domain.LeadQualified},
			},
			TotalElements: 2, TotalPages: 1,
		})
	})
	r.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, domain.Lead{ID: 11, Name: "Carla Cliente", Email: "carla@x.test", Phone: "555", Status: domain.LeadNew, Notes: "call after 5pm"})
	})
	r.Put("/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.record(r, string(body))
		writeBody(w, http.StatusOK, domain.Lead{ID: 11, Name: "Carla Cliente", Status: domain.LeadNew})
	})
	r.Delete("/leads/{id}", f.countDelete)
	r.Post("/leads/import", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := f.recordUpload(w, r); ok {
			writeBody(w, http.StatusCreated, domain.ImportLeadsResult{Message: "Leads imported successfully", Count: 3})
		}
	})

	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, domain.Product{ID: 6, Name: "Vida Plus", CategoryID: 4})
	})
	r.Delete("/products/{id}", f.countDelete)
	r.Delete("/products/categories/{id}", f.countDelete)
	r.Post("/products/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		if name, ok := f.recordUpload(w, r); ok {
			writeBody(w, http.StatusCreated, domain.ProductDocument{ID: 9, ProductID: 6, Filename: name})
		}
	})
	r.Get("/products/documents/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="terms.pdf"`)
		w.Write([]byte("%PDF-1.4 terms"))
	})

	r.Get("/admin/users", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []domain.User{adminUser, agentUser})
	})
	r.Delete("/admin/users/{id}", f.countDelete)
	r.Get("/scheduler/tasks/today", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []domain.CallTask{
			{ID: 3, LeadID: 11, LeadName: "Carla Cliente", Status: domain.TaskPending, ScheduledTime: "2026-10-19T10:00:00"},
		})
	})
	r.Get("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	})
	return r
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type stubLimiter struct {
	allowed bool
	resets  atomic.Int64
}

func (l *stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.allowed, 5 * time.Minute, nil
}

func (l *stubLimiter) Reset(context.Context, string) error {
	l.resets.Add(1)
	return nil
}

type testApp struct {
	router  http.Handler
	backend *fakeBackend
	limiter *stubLimiter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	backend := client.NewBackend(srv.Client(), srv.URL, resilience.Config{
		MaxRetries:     0,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 8,
	}, metrics, logger)

	queries := query.New(time.Minute, metrics, logger)
	t.Cleanup(queries.Close)

	leads := client.NewLeadsClient(backend)
	scheduler := client.NewSchedulerClient(backend)
	voice := client.NewVoiceClient(backend)
	prospectus := client.NewProspectusClient(backend)
	email := client.NewEmailClient(backend)
	admin := client.NewAdminClient(backend)
	products := client.NewProductsClient(backend)
	categories := client.NewCategoriesClient(backend)

	auth := service.NewAuthService(client.NewAuthClient(backend), time.Minute, logger)
	t.Cleanup(auth.Close)

	sealer, err := session.NewSealer([]byte("test-secret"))
	require.NoError(t, err)
	views, err := view.New(metrics, logger)
	require.NoError(t, err)

	limiter := &stubLimiter{allowed: true}
	router := handler.NewRouter(handler.Deps{
		Leads:       service.NewLeadService(leads, scheduler, voice, prospectus, email, queries, logger),
		Scheduler:   service.NewSchedulerService(scheduler, queries, logger),
		Dashboard:   service.NewDashboardService(leads, scheduler, admin, queries, metrics, logger),
		Catalog:     service.NewCatalogService(products, categories, queries, logger),
		Outreach:    service.NewOutreachService(voice, prospectus, email, queries, logger),
		Admin:       service.NewAdminService(admin, queries, logger),
		Views:       views,
		Persistence: session.NewCookiePersistence(sealer, session.CookieOptions{Name: "crm_session", TTL: time.Hour}),
		Identity:    auth,
		Limiter:     limiter,
		Queries:     queries,
		Metrics:     metrics,
		Checks: []handler.HealthCheck{
			{Name: "crm-backend", Check: func(context.Context) error { return nil }},
		},
	}, logger)

	return &testApp{router: router, backend: fb, limiter: limiter}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// postFile builds a multipart post carrying one "file" part plus fields.
func postFile(t *testing.T, path, filename, content string, fields url.Values, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write([]byte(content))
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func get(path string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// login signs in and returns the session cookie.
func (a *testApp) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := a.do(postForm("/login", url.Values{"email": {email}, "password": {"secret"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "crm_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(get("/healthz"))

	require.Equal(t, http.StatusOK, rec.Code)
	var health domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Services, 2)
}

func TestReadyz(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(get("/readyz")).Code)
}

func TestMetrics(t *testing.T) {
	app := newTestApp(t)
	app.do(get("/login"))

	rec := app.do(get("/metrics"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crmweb_page_renders_total")
}

// ============================================================
// Route guards
// ============================================================

func TestGuard_AnonymousRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/agent/dashboard", "/agent/kanban", "/admin/users", "/"} {
		rec := app.do(get(path))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
	assert.Zero(t, app.backend.calls.Load(), "anonymous visitors never reach the backend")
}

func TestGuard_AgentOnAdminPageGoesToAgentHome(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	rec := app.do(get("/admin/users", cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/agent/dashboard", rec.Header().Get("Location"))
}

func TestGuard_TamperedCookieIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(get("/agent/dashboard", &http.Cookie{Name: "crm_session", Value: "garbage"}))
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestUnknownPathsFallBackToHome(t *testing.T) {
	app := newTestApp(t)
	agent := app.login(t, agentUser.Email)
	admin := app.login(t, adminUser.Email)

	cases := []struct {
		path   string
		cookie *http.Cookie
		want   string
	}{
		{"/agent/nope", agent, "/agent/dashboard"},
		{"/admin/nope/deeper", admin, "/admin/dashboard"},
		{"/nowhere", agent, "/"},
	}
	for _, tc := range cases {
		rec := app.do(get(tc.path, tc.cookie))
		assert.Equal(t, http.StatusSeeOther, rec.Code, tc.path)
		assert.Equal(t, tc.want, rec.Header().Get("Location"), tc.path)
	}
}

// ============================================================
// Login / logout
// ============================================================

func TestLogin_RedirectsByRole(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(postForm("/login", url.Values{"email": {agentUser.Email}, "password": {"secret"}}))
	assert.Equal(t, "/agent/dashboard", rec.Header().Get("Location"))

	rec = app.do(postForm("/login", url.Values{"email": {adminUser.Email}, "password": {"secret"}}))
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))
	assert.EqualValues(t, 2, app.limiter.resets.Load())
}

func TestLogin_ValidationNeverCallsBackend(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(postForm("/login", url.Values{"email": {""}, "password": {"x"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is required")
	assert.Zero(t, app.backend.calls.Load())
}

func TestLogin_ShowsServerMessage(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(postForm("/login", url.Values{"email": {agentUser.Email}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_Throttled(t *testing.T) {
	app := newTestApp(t)
	app.limiter.allowed = false

	rec := app.do(postForm("/login", url.Values{"email": {agentUser.Email}, "password": {"secret"}}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	assert.Zero(t, app.backend.calls.Load())
}

func TestLogout_ClearsCookieWithoutBackendCall(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)
	before := app.backend.calls.Load()

	rec := app.do(postForm("/logout", nil, cookie))
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "crm_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
	// Only the /auth/me check of the session middleware may have run, and
	// the identity cache answers it.
	assert.Equal(t, before, app.backend.calls.Load())
}

func TestLogout_GetNeverEndsLiveSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	for _, path := range []string{"/logout", "/logout?reason=expired"} {
		rec := app.do(get(path, cookie))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/agent/dashboard", rec.Header().Get("Location"), path)
		for _, c := range rec.Result().Cookies() {
			assert.False(t, c.Name == "crm_session" && c.MaxAge < 0, "%s cleared the session cookie", path)
		}
	}

	rec := app.do(get("/agent/dashboard", cookie))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_GetWithoutSessionGoesToLogin(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "/login", app.do(get("/logout")).Header().Get("Location"))
	assert.Equal(t, "/login?reason=expired", app.do(get("/logout?reason=expired")).Header().Get("Location"))
}

// ============================================================
// Pages
// ============================================================

func TestAgentDashboard_StreamsContent(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	rec := app.do(get("/agent/dashboard", cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="loading"`)
	assert.Contains(t, body, "Carla Cliente")
	assert.Less(t, strings.Index(body, `id="loading"`), strings.Index(body, "Carla Cliente"))
}

func TestKanban_GroupsLeads(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	body := app.do(get("/agent/kanban", cookie)).Body.String()
	assert.Contains(t, body, "Davi Dono")
	assert.Contains(t, body, "Proposal Sent")
}

func TestAdminDashboard_StatsUnavailableNotice(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	body := app.do(get("/admin/dashboard", cookie)).Body.String()
	assert.Contains(t, body, "Dashboard statistics are not yet available")
}

func TestPage_ExpiredTokenEndsSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)
	app.backend.leadsStatus.Store(http.StatusUnauthorized)

	rec := app.do(get("/agent/leads", cookie))
	body := rec.Body.String()
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "/logout?reason=expired")

	rec = app.do(get("/logout?reason=expired"))
	assert.Equal(t, "/login?reason=expired", rec.Header().Get("Location"))
}

// ============================================================
// Delete confirmation
// ============================================================

func TestDelete_RequiresConfirmation(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	rec := app.do(get("/agent/leads/11/delete", cookie))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)

	rec = app.do(postForm("/agent/leads/11/delete", url.Values{}, cookie))
	assert.Equal(t, "/agent/leads/11", rec.Header().Get("Location"))
	assert.Zero(t, app.backend.deletes.Load())

	rec = app.do(postForm("/agent/leads/11/delete", url.Values{"confirm": {"yes"}}, cookie))
	assert.Equal(t, "/agent/leads", rec.Header().Get("Location"))
	assert.EqualValues(t, 1, app.backend.deletes.Load())
}

func TestAdminDelete_RequiresConfirmation(t *testing.T) {
	cases := []struct {
		name string
		path string
		list string
	}{
		{"user", "/admin/users/5/delete", "/admin/users"},
		{"product", "/admin/products/6/delete", "/admin/products"},
		{"category", "/admin/categories/4/delete", "/admin/categories"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			cookie := app.login(t, adminUser.Email)

			rec := app.do(get(tc.path, cookie))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)
			assert.Zero(t, app.backend.deletes.Load(), "showing the confirmation deletes nothing")

			rec = app.do(postForm(tc.path, url.Values{}, cookie))
			assert.Equal(t, tc.list, rec.Header().Get("Location"))
			assert.Zero(t, app.backend.deletes.Load(), "cancel issues no call")

			rec = app.do(postForm(tc.path, url.Values{"confirm": {"yes"}}, cookie))
			assert.Equal(t, tc.list, rec.Header().Get("Location"))
			assert.EqualValues(t, 1, app.backend.deletes.Load())
		})
	}
}

// ============================================================
// Documents & lead import
// ============================================================

func TestDocuments_UploadFilesUnderProductCategory(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	rec := app.do(postFile(t, "/admin/products/6/documents", "terms.pdf", "%PDF terms", nil, cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/documents?productId=6&notice=Uploaded+terms.pdf", rec.Header().Get("Location"))

	got, ok := app.backend.seen("POST /products/6/documents")
	require.True(t, ok)
	assert.Equal(t, "terms.pdf|%PDF terms|categoryId=4", got)
}

func TestDocuments_UploadWithoutFileNeverCallsBackend(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	rec := app.do(postFile(t, "/admin/products/6/documents", "", "", nil, cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=Choose+a+file+to+upload")

	_, ok := app.backend.seen("POST /products/6/documents")
	assert.False(t, ok)
}

func TestDocuments_Download(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	rec := app.do(get("/admin/documents/9/download?productId=6", cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="terms.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 terms", rec.Body.String())
}

func TestImportLeads_OffersAgentsAndForwardsFile(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	body := app.do(get("/admin/leads/import", cookie)).Body.String()
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, `<option value="7"`)
	assert.NotContains(t, body, `<option value="1"`, "only agents are offered")

	csv := "name,email,phone\nEva,eva@x.test,555\n"
	rec := app.do(postFile(t, "/admin/leads/import", "leads.csv", csv, url.Values{"defaultAgentId": {"7"}}, cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/leads/import?notice=Imported+3+leads", rec.Header().Get("Location"))

	got, ok := app.backend.seen("POST /leads/import")
	require.True(t, ok)
	assert.Equal(t, "leads.csv|"+csv+"|defaultAgentId=7", got)
}

func TestImportLeads_RejectsNonCSV(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, adminUser.Email)

	rec := app.do(postFile(t, "/admin/leads/import", "leads.xlsx", "binary", nil, cookie))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "File must be a CSV")

	_, ok := app.backend.seen("POST /leads/import")
	assert.False(t, ok)
}

// ============================================================
// Lead editing
// ============================================================

func TestLeadDetail_AssignPickerForAdmins(t *testing.T) {
	app := newTestApp(t)

	admin := app.do(get("/agent/leads/11", app.login(t, adminUser.Email))).Body.String()
	assert.Contains(t, admin, `<select name="agentId">`)
	assert.Contains(t, admin, "Ana Agent")

	agent := app.do(get("/agent/leads/11", app.login(t, agentUser.Email))).Body.String()
	assert.Contains(t, agent, `type="number" name="agentId"`)
	assert.NotContains(t, agent, `<select name="agentId">`)
}

func TestUpdateLead_ClearedFieldsAreSent(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, agentUser.Email)

	rec := app.do(postForm("/agent/leads/11/edit", url.Values{
		"name":       {"Carla Cliente"},
		"email":      {"carla@x.test"},
		"phone":      {"555"},
		"status":     {string(domain.LeadNew)},
		"leadSource": {""},
		"location":   {""},
		"notes":      {""},
	}, cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/agent/leads/11", rec.Header().Get("Location"))

	raw, ok := app.backend.seen("PUT /leads/11")
	require.True(t, ok)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &sent))
	assert.Equal(t, "", sent["notes"])
	assert.Equal(t, "", sent["location"])
	assert.Equal(t, "", sent["leadSource"])
	assert.Equal(t, "Carla Cliente", sent["name"])
}
