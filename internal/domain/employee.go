package domain

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrEmployeeNotFound is returned when an identifier does not resolve to a stored employee
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrStoreUnavailable is returned when the document store is failing fast
	ErrStoreUnavailable = errors.New("employee store unavailable")
)

// Employee is the single entity held by the directory
type Employee struct {
	ID        string `json:"_id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// EmployeePatch carries a partial update. Only non-nil fields are applied.
type EmployeePatch struct {
	ID        string  `json:"_id,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Position  *string `json:"position,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Apply copies the present patch fields onto e. The identifier is never touched.
func (p EmployeePatch) Apply(e *Employee) {
	if p.FirstName != nil {
		e.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		e.LastName = *p.LastName
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.Phone != nil {
		e.Phone = *p.Phone
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
}

// Fields returns the present patch fields keyed by their wire name
func (p EmployeePatch) Fields() map[string]string {
	out := make(map[string]string, 5)
	if p.FirstName != nil {
		out[FieldFirstName] = *p.FirstName
	}
	if p.LastName != nil {
		out[FieldLastName] = *p.LastName
	}
	if p.Position != nil {
		out[FieldPosition] = *p.Position
	}
	if p.Phone != nil {
		out[FieldPhone] = *p.Phone
	}
	if p.Email != nil {
		out[FieldEmail] = *p.Email
	}
	return out
}

// PatchFrom builds a patch that sets every field of e
func PatchFrom(e Employee) EmployeePatch {
	return EmployeePatch{
		ID:        e.ID,
		FirstName: &e.FirstName,
		LastName:  &e.LastName,
		Position:  &e.Position,
		Phone:     &e.Phone,
		Email:     &e.Email,
	}
}

// Wire names of the editable fields
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldPosition  = "position"
	FieldPhone     = "phone"
	FieldEmail     = "email"
)

// Get returns the value of a field by wire name
func (e *Employee) Get(field string) (string, bool) {
	switch field {
	case FieldFirstName:
		return e.FirstName, true
	case FieldLastName:
		return e.LastName, true
	case FieldPosition:
		return e.Position, true
	case FieldPhone:
		return e.Phone, true
	case FieldEmail:
		return e.Email, true
	}
	return "", false
}

// Set assigns a field by wire name. It reports false for unknown fields.
func (e *Employee) Set(field, value string) bool {
	switch field {
	case FieldFirstName:
		e.FirstName = value
	case FieldLastName:
		e.LastName = value
	case FieldPosition:
		e.Position = value
	case FieldPhone:
		e.Phone = value
	case FieldEmail:
		e.Email = value
	default:
		return false
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has a local@domain.tld shape
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// EmployeeRepository is the document store holding employees
type EmployeeRepository interface {
	List(ctx context.Context) ([]*Employee, error)
	// Insert stores e under a freshly minted identifier and sets e.ID
	Insert(ctx context.Context, e *Employee) error
	// FindByIDAndUpdate applies patch to the stored record and returns the updated document
	FindByIDAndUpdate(ctx context.Context, id string, patch EmployeePatch) (*Employee, error)
	Ping(ctx context.Context) error
}
