// Package view renders the server-side HTML pages. Data pages are streamed:
// the layout and a loading indicator are flushed first, then the page body or
// an error alert once the queries have finished.
package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ExpiredPath is where a page sends the browser once the backend rejected
// the session token.
const ExpiredPath = "/logout?reason=expired"

// Layout is the chrome around every page.
type Layout struct {
	Title  string
	User   *domain.User
	Active string
	Flash  string
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl    *template.Template
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New parses the embedded templates.
func New(metrics *observability.Metrics, logger *zap.Logger) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, metrics: metrics, logger: logger}, nil
}

// Static serves the embedded stylesheet under /static/.
func (r *Renderer) Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Render writes a complete page in one go. Used for forms, confirmations and
// the login page, which need no backend data before they can be shown.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, layout Layout, data any) {
	var body bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		r.logger.Error("template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, domain.DefaultErrorMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	r.exec(w, "head", layout)
	w.Write(body.Bytes())
	r.exec(w, "foot", layout)
	r.metrics.IncrPageRender(name, "ok")
}

// Begin starts a streamed page: the layout and the loading indicator are
// written and flushed before any backend query runs.
func (r *Renderer) Begin(w http.ResponseWriter, name string, layout Layout) *Page {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	r.exec(w, "head", layout)
	r.exec(w, "loading", nil)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return &Page{r: r, w: w, name: name, layout: layout}
}

func (r *Renderer) exec(w http.ResponseWriter, name string, data any) {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("template failed", zap.String("template", name), zap.Error(err))
	}
}

// Page is a streamed page whose body is still pending.
type Page struct {
	r      *Renderer
	w      http.ResponseWriter
	name   string
	layout Layout
	done   bool
}

// Content replaces the loading indicator with the page body.
func (p *Page) Content(data any) {
	if p.done {
		return
	}
	var body bytes.Buffer
	if err := p.r.tmpl.ExecuteTemplate(&body, p.name, data); err != nil {
		p.r.logger.Error("template failed", zap.String("template", p.name), zap.Error(err))
		p.Fail(err)
		return
	}
	p.finish(body.Bytes(), "ok")
}

// Fail replaces the loading indicator with an error alert.
func (p *Page) Fail(err error) {
	if p.done {
		return
	}
	var body bytes.Buffer
	p.r.tmpl.ExecuteTemplate(&body, "alert", domain.ErrorMessage(err))
	p.finish(body.Bytes(), "error")
}

// Expired sends the browser to the forced-logout path. Headers are already
// written, so the redirect is a meta refresh.
func (p *Page) Expired() {
	if p.done {
		return
	}
	var body bytes.Buffer
	p.r.tmpl.ExecuteTemplate(&body, "expired", ExpiredPath)
	p.finish(body.Bytes(), "expired")
}

func (p *Page) finish(body []byte, outcome string) {
	p.done = true
	p.r.exec(p.w, "loaded", nil)
	p.w.Write(body)
	p.r.exec(p.w, "foot", p.layout)
	p.r.metrics.IncrPageRender(p.name, outcome)
}

// ============================================================
// Template helpers
// ============================================================

var funcs = template.FuncMap{
	"statusLabel": func(s domain.LeadStatus) string { return s.Label() },
	"statusClass": func(s any) string { return strings.ToLower(fmt.Sprint(s)) },
	"when":        formatTime,
	"pretty":      prettyJSON,
	"join":        strings.Join,
	"add":         func(a, b int) int { return a + b },
	"sub":         func(a, b int) int { return a - b },
	"add64":       func(a, b int64) int64 { return a + b },
	"pct":         func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"percent":     func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"deref":       derefInt64,
	"leadStatuses": func() []domain.LeadStatus {
		return domain.LeadStatuses
	},
}

func formatTime(s string) string {
	if s == "" {
		return "-"
	}
	t, ok := domain.ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Format("02 Jan 2006 15:04")
}

func prettyJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
