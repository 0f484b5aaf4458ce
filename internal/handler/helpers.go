package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

// ============================================================
// Shared helper functions
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// layout builds the page chrome for the signed-in user.
func layout(r *http.Request, title, active string) view.Layout {
	l := view.Layout{Title: title, Active: active}
	if s := session.FromContext(r.Context()); s != nil {
		l.User = s.Snapshot().User
	}
	switch {
	case r.URL.Query().Get("error") != "":
		l.Flash = r.URL.Query().Get("error")
	case r.URL.Query().Get("notice") != "":
		l.Flash = r.URL.Query().Get("notice")
	}
	return l
}

func currentUser(ctx context.Context) *domain.User {
	if s := session.FromContext(ctx); s != nil {
		return s.Snapshot().User
	}
	return nil
}

// idParam parses a positive numeric URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ErrNotFound{Resource: name, ID: raw}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}

func queryInt64(r *http.Request, name string) int64 {
	i, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if i < 0 {
		return 0
	}
	return i
}

func formInt64(r *http.Request, name string) int64 {
	i, _ := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(name)), 10, 64)
	return i
}

// submitted returns the trimmed value of a posted field, or nil when the
// form did not carry it. An empty result clears the field on the backend.
func submitted(r *http.Request, name string) *string {
	if _, ok := r.PostForm[name]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.PostForm.Get(name))
	return &v
}

func optionalInt64(v string) *int64 {
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || i <= 0 {
		return nil
	}
	return &i
}

func optionalInt(v string) *int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i <= 0 {
		return nil
	}
	return &i
}

// maxUploadBytes caps multipart bodies accepted from the browser.
const maxUploadBytes = 32 << 20

// formFile parses a multipart post and reads the named file. A missing file
// yields nil so the service reports it next to the field.
func formFile(w http.ResponseWriter, r *http.Request, name string) (*domain.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &domain.ErrValidation{Field: name, Message: "The upload is too large or malformed"}
	}
	f, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// writeDownload sends a fetched file as an attachment.
func writeDownload(w http.ResponseWriter, dl *domain.Download, fallbackType, disposition string) {
	contentType := dl.ContentType
	if contentType == "" {
		contentType = fallbackType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Body)))
	w.Write(dl.Body)
}

// pageLinks returns the previous and next URLs for a paginated list,
// keeping the other query parameters.
func pageLinks(r *http.Request, number, totalPages int) (prev, next string) {
	link := func(page int) string {
		q := url.Values{}
		for k, v := range r.URL.Query() {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		return r.URL.Path + "?" + q.Encode()
	}
	if number > 0 {
		prev = link(number - 1)
	}
	if number+1 < totalPages {
		next = link(number + 1)
	}
	return prev, next
}

// redirect answers a form post with 303 See Other.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// redirectWithError sends the browser back to target with a flash message.
func redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	redirect(w, r, target+sep+"error="+url.QueryEscape(domain.ErrorMessage(err)))
}

// handlePageError finishes a streamed page after a failed query.
func handlePageError(r *http.Request, page *view.Page, err error, logger *zap.Logger) {
	if domain.IsUnauthorized(err) {
		expireSession(r)
		page.Expired()
		return
	}
	logServiceError(r, err, logger)
	page.Fail(err)
}

// handleMutationError answers a failed form post. Only a rejected token is
// handled here; callers render validation errors themselves.
func handleMutationError(w http.ResponseWriter, r *http.Request, back string, err error, logger *zap.Logger) {
	if domain.IsUnauthorized(err) {
		expireSession(r)
		redirect(w, r, view.ExpiredPath)
		return
	}
	logServiceError(r, err, logger)
	redirectWithError(w, r, back, err)
}

func expireSession(r *http.Request) {
	if s := session.FromContext(r.Context()); s != nil {
		s.Expire(r.Context())
	}
}

// logServiceError logs a failed backend interaction at a level that matches
// its cause.
func logServiceError(r *http.Request, err error, logger *zap.Logger) {
	var apiErr *domain.APIError
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var external *domain.ErrExternalService

	fields := []zap.Field{zap.String("path", r.URL.Path), zap.Error(err)}
	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", fields...)
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		logger.Info("backend rejected request", append(fields, zap.Int("status", apiErr.Status))...)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", fields...)
	case errors.As(err, &external):
		logger.Error("backend unreachable", fields...)
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled", fields...)
	default:
		logger.Error("page failed", fields...)
	}
}

// isValidation reports whether err should be shown inline on the form.
func isValidation(err error) bool {
	var v *domain.ErrValidation
	return errors.As(err, &v)
}

// renderFormError re-renders a submitted form with the failure shown.
// Validation errors mark their field; backend errors show as an alert.
func renderFormError(w http.ResponseWriter, r *http.Request, views *view.Renderer, l view.Layout, form view.Form, err error, logger *zap.Logger) {
	if domain.IsUnauthorized(err) {
		expireSession(r)
		redirect(w, r, view.ExpiredPath)
		return
	}

	status := http.StatusUnprocessableEntity
	if !isValidation(err) {
		logServiceError(r, err, logger)
		status = http.StatusBadGateway
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
	}
	if form.Values == nil {
		form.Values = r.PostForm
	}
	views.Render(w, status, "form", l, form.WithError(err))
}

// target builds a redirect location from the request and the route id.
type target func(r *http.Request, id int64) string

func to(path string) target {
	return func(*http.Request, int64) string { return path }
}

func toID(format string) target {
	return func(_ *http.Request, id int64) string { return fmt.Sprintf(format, id) }
}

// confirmDeleteHandler renders the confirmation page for a delete. Nothing
// is sent to the backend until the form is posted back.
func confirmDeleteHandler(views *view.Renderer, active, what string, cancel target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		views.Render(w, http.StatusOK, "confirm", layout(r, "Delete "+what, active), view.Confirm{
			Title:   "Delete " + what,
			Message: fmt.Sprintf("Delete %s #%d? This cannot be undone.", what, id),
			Action:  r.URL.RequestURI(),
			Cancel:  cancel(r, id),
		})
	}
}

// deleteHandler performs a confirmed delete. Posts without confirm=yes go
// back without calling the backend.
func deleteHandler(del func(ctx context.Context, id int64) error, back, done target, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if r.PostFormValue("confirm") != "yes" {
			redirect(w, r, back(r, id))
			return
		}
		if err := del(r.Context(), id); err != nil {
			handleMutationError(w, r, back(r, id), err, logger)
			return
		}
		redirect(w, r, done(r, id))
	}
}
