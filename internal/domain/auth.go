package domain

// ============================================================
// Auth: request/response types for the backend /auth contract
// ============================================================

// Role is the access level of a user.
type Role string

const (
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// User is an authenticated CRM user.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// IsAdmin reports whether u holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// User extracts the user record carried by the login response.
func (r *LoginResponse) User() *User {
	return &User{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role}
}

// CreateUserRequest is the body for POST /admin/users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UpdateUserRequest is the body for PUT /admin/users/{id}.
type UpdateUserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// ResetPasswordRequest is the body for POST /admin/users/{id}/reset-password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ============================================================
// Session
// ============================================================

// SessionState is the position of the auth state machine.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateLoading
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	}
	return "anonymous"
}

// Session is an immutable snapshot of the client auth state.
type Session struct {
	User            *User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

// State maps the snapshot flags back to a SessionState.
func (s Session) State() SessionState {
	switch {
	case s.IsLoading:
		return StateLoading
	case s.IsAuthenticated:
		return StateAuthenticated
	}
	return StateAnonymous
}
