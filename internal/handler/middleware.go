package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/guard"
	"github.com/boddenberg/insurance-crm-web/internal/infra/client"
	"github.com/boddenberg/insurance-crm-web/internal/query"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

// SessionMiddleware builds the request's session store from the persisted
// token and validates it. Authenticated requests carry the bearer token for
// the backend client and the user's query cache scope.
func SessionMiddleware(persist session.Persistence, identity session.Identity, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			store := session.NewStore(ctx, persist.For(w, r), identity, logger)
			store.CheckAuth(ctx)

			ctx = session.NewContext(ctx, store)
			if snap := store.Snapshot(); snap.IsAuthenticated {
				ctx = client.WithToken(ctx, snap.Token)
				ctx = query.WithScope(ctx, query.UserScope(snap.User.ID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession guards a route group. Anonymous visitors go to the login
// page; agents opening admin pages go to the agent dashboard.
func RequireSession(requireAdmin bool, views *view.Renderer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.FromContext(r.Context())
			if store == nil {
				redirect(w, r, guard.LoginPath)
				return
			}

			decision := guard.Decide(store.Snapshot(), requireAdmin)
			switch decision {
			case guard.Render:
				next.ServeHTTP(w, r)
			case guard.ShowLoading:
				views.Render(w, http.StatusOK, "loading", view.Layout{}, nil)
			default:
				logger.Debug("route guarded",
					zap.String("path", r.URL.Path),
					zap.String("decision", decision.String()),
				)
				redirect(w, r, decision.Target())
			}
		})
	}
}
