// Package guard decides whether a protected page may render for a session.
package guard

import "github.com/boddenberg/insurance-crm-web/internal/domain"

// Decision is the outcome of a route check.
type Decision int

const (
	Render Decision = iota
	ShowLoading
	RedirectLogin
	RedirectAgentHome
)

const (
	LoginPath     = "/login"
	AgentHomePath = "/agent/dashboard"
	AdminHomePath = "/admin/dashboard"
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "show_loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectAgentHome:
		return "redirect_agent_home"
	}
	return "render"
}

// Target is the redirect destination for redirect decisions.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectAgentHome:
		return AgentHomePath
	}
	return ""
}

// Decide checks loading first, then authentication, then role.
func Decide(s domain.Session, requireAdmin bool) Decision {
	switch {
	case s.IsLoading:
		return ShowLoading
	case !s.IsAuthenticated || s.User == nil:
		return RedirectLogin
	case requireAdmin && !s.User.IsAdmin():
		return RedirectAgentHome
	}
	return Render
}

// Home is where an authenticated user lands after login.
func Home(u *domain.User) string {
	if u.IsAdmin() {
		return AdminHomePath
	}
	return AgentHomePath
}
