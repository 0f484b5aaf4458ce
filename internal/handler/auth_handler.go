package handler

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/guard"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

const loginFailedMessage = "Login failed. Please try again."

type loginPage struct {
	Email    string
	Error    string
	ErrField string
	Expired  bool
}

// ============================================================
// GET /login
// ============================================================

func loginPageHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r.Context()); u != nil {
			redirect(w, r, guard.Home(u))
			return
		}
		views.Render(w, http.StatusOK, "login", view.Layout{Title: "Sign in"}, loginPage{
			Expired: r.URL.Query().Get("reason") == "expired",
		})
	}
}

// ============================================================
// POST /login
// ============================================================

func loginSubmitHandler(limiter port.RateLimiter, views *view.Renderer, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			views.Render(w, http.StatusBadRequest, "login", view.Layout{Title: "Sign in"}, loginPage{Error: loginFailedMessage})
			return
		}
		data := loginPage{Email: r.PostFormValue("email")}

		key := "login:" + clientIP(r)
		if limiter != nil {
			allowed, retryAfter, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.Warn("login rate limiter unavailable", zap.Error(err))
			}
			if !allowed {
				metrics.IncrLogin("blocked")
				logger.Warn("login throttled", zap.String("remote_addr", r.RemoteAddr))
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				data.Error = (&domain.ErrRateLimited{RetryAfter: int(retryAfter.Seconds())}).Error()
				views.Render(w, http.StatusTooManyRequests, "login", view.Layout{Title: "Sign in"}, data)
				return
			}
		}

		store := session.FromContext(ctx)
		if err := store.Login(ctx, data.Email, r.PostFormValue("password")); err != nil {
			metrics.IncrLogin("failure")
			status := http.StatusUnauthorized
			var v *domain.ErrValidation
			var apiErr *domain.APIError
			switch {
			case errors.As(err, &v):
				data.ErrField = v.Field
				data.Error = v.Message
				status = http.StatusUnprocessableEntity
			case errors.As(err, &apiErr) && apiErr.Message != "":
				data.Error = apiErr.Message
			default:
				logServiceError(r, err, logger)
				data.Error = loginFailedMessage
				if !domain.IsUnauthorized(err) {
					status = http.StatusBadGateway
				}
			}
			views.Render(w, status, "login", view.Layout{Title: "Sign in"}, data)
			return
		}

		metrics.IncrLogin("success")
		if limiter != nil {
			if err := limiter.Reset(ctx, key); err != nil {
				logger.Warn("login rate limiter reset failed", zap.Error(err))
			}
		}
		redirect(w, r, guard.Home(store.Snapshot().User))
	}
}

// ============================================================
// POST /logout
// ============================================================

// logoutHandler clears the session without calling the backend. The user's
// cached queries are dropped as well.
func logoutHandler(queries *query.Client, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if u := currentUser(ctx); u != nil {
			queries.Forget(query.UserScope(u.ID))
			logger.Info("user logged out", zap.Int64("user_id", u.ID))
		}
		if store := session.FromContext(ctx); store != nil {
			store.Logout(ctx)
		}
		redirect(w, r, guard.LoginPath)
	}
}

// ============================================================
// GET /logout
// ============================================================

// expiredHandler is where pages send the browser after the backend rejected
// its token. It never ends a session: by the time it runs, the session
// middleware has already cleared a rejected token, and a session that still
// checks out just goes home.
func expiredHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r.Context()); u != nil {
			redirect(w, r, guard.Home(u))
			return
		}
		target := guard.LoginPath
		if r.URL.Query().Get("reason") == "expired" {
			target += "?reason=expired"
		}
		redirect(w, r, target)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
