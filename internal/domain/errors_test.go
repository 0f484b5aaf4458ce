package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &domain.APIError{Status: 409, Message: "Email already in use"}, "Email already in use"},
		{"wrapped server message", fmt.Errorf("create: %w", &domain.APIError{Status: 400, Message: "bad"}), "bad"},
		{"server without message", &domain.APIError{Status: 500}, domain.DefaultErrorMessage},
		{"transport", &domain.ErrExternalService{Service: "leads", Err: errors.New("connection refused")}, "connection refused"},
		{"validation", &domain.ErrValidation{Field: "name", Message: "Name is required"}, "Name is required"},
		{"plain", errors.New("boom"), "boom"},
		{"empty", errors.New(""), domain.DefaultErrorMessage},
		{"nil", nil, domain.DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.ErrorMessage(tt.err); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !domain.IsUnauthorized(fmt.Errorf("wrap: %w", &domain.APIError{Status: 401})) {
		t.Error("expected 401 APIError to be unauthorized")
	}
	if !domain.IsUnauthorized(&domain.ErrUnauthorized{}) {
		t.Error("expected ErrUnauthorized to be unauthorized")
	}
	if domain.IsUnauthorized(&domain.APIError{Status: 403}) {
		t.Error("403 must not be treated as unauthorized")
	}
	if domain.IsUnauthorized(errors.New("x")) {
		t.Error("plain error must not be unauthorized")
	}
}

func TestLeadStatusOrder(t *testing.T) {
	want := []domain.LeadStatus{"NEW", "CONTACTED", "QUALIFIED", "PROPOSAL_SENT", "CONVERTED", "LOST"}
	if len(domain.LeadStatuses) != len(want) {
		t.Fatalf("expected %d statuses, got %d", len(want), len(domain.LeadStatuses))
	}
	for i, s := range want {
		if domain.LeadStatuses[i] != s {
			t.Errorf("position %d: want %s, got %s", i, s, domain.LeadStatuses[i])
		}
	}
	if domain.LeadStatus("ARCHIVED").Valid() {
		t.Error("unknown status must not be valid")
	}
}

func TestSessionState(t *testing.T) {
	if (domain.Session{IsLoading: true}).State() != domain.StateLoading {
		t.Error("loading flag must map to StateLoading")
	}
	if (domain.Session{IsAuthenticated: true, User: &domain.User{}}).State() != domain.StateAuthenticated {
		t.Error("authenticated flag must map to StateAuthenticated")
	}
	if (domain.Session{}).State() != domain.StateAnonymous {
		t.Error("zero session must be anonymous")
	}
}
