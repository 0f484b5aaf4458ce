package view

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// Field input types.
const (
	Text     = "text"
	Email    = "email"
	Password = "password"
	Number   = "number"
	DateTime = "datetime-local"
	TextArea = "textarea"
	Select   = "select"
	Checkbox = "checkbox"
	Hidden   = "hidden"
	File     = "file"
)

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one form input.
type Field struct {
	Name     string
	Label    string
	Type     string
	Options  []Option
	Required bool
	Help     string
	// Accept restricts file inputs, e.g. ".csv".
	Accept string
}

// Form is a generic form page. Values holds what the user typed so a failed
// submission re-renders with the input intact.
type Form struct {
	Title    string
	Action   string
	Submit   string
	Cancel   string
	Fields   []Field
	Values   url.Values
	ErrField string
	Error    string
	// Multipart switches the encoding for forms with file fields.
	Multipart bool
}

// Value returns the submitted or prefilled value of a field.
func (f Form) Value(name string) string {
	if f.Values == nil {
		return ""
	}
	return f.Values.Get(name)
}

// Checked reports whether a checkbox field is set.
func (f Form) Checked(name string) bool {
	v := f.Value(name)
	return v == "on" || v == "true" || v == "1"
}

// Invalid reports whether name is the field the last error points at.
func (f Form) Invalid(name string) bool {
	return f.ErrField != "" && f.ErrField == name
}

// WithError records err on the form: validation errors mark their field,
// everything else shows as a form-level alert.
func (f Form) WithError(err error) Form {
	var v *domain.ErrValidation
	if errors.As(err, &v) {
		f.ErrField = v.Field
	}
	f.Error = domain.ErrorMessage(err)
	return f
}

// StatusOptions lists the lead statuses as select options.
func StatusOptions() []Option {
	opts := make([]Option, 0, len(domain.LeadStatuses))
	for _, s := range domain.LeadStatuses {
		opts = append(opts, Option{Value: string(s), Label: s.Label()})
	}
	return opts
}

// UserOptions lists users as select options labelled by name.
func UserOptions(users []domain.User) []Option {
	opts := make([]Option, 0, len(users))
	for _, u := range users {
		opts = append(opts, Option{Value: strconv.FormatInt(u.ID, 10), Label: u.Name})
	}
	return opts
}

// RoleOptions lists the user roles as select options.
func RoleOptions() []Option {
	return []Option{
		{Value: string(domain.RoleAgent), Label: "Agent"},
		{Value: string(domain.RoleAdmin), Label: "Admin"},
	}
}

// Confirm is the delete confirmation page.
type Confirm struct {
	Title   string
	Message string
	Action  string
	Cancel  string
}
