package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

// Validation messages shown to the user
const (
	MsgFillAllFields  = "Please fill all fields before adding."
	MsgInvalidEmail   = "Please enter a valid email address."
	MsgEmailInUse     = "Email is already in use."
	msgInvalidEmailOf = "Invalid email format for %s %s."
	msgDuplicateOf    = "Duplicate email found for %s %s."
)

// Sort orders
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ValidationError blocks a write before any request is sent
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// API is the transport a Session drives; *Client implements it
type API interface {
	List(ctx context.Context) ([]domain.Employee, error)
	Create(ctx context.Context, employees []domain.Employee) ([]domain.Employee, error)
	Update(ctx context.Context, patches []domain.EmployeePatch) (*domain.BatchUpdateResult, error)
}

// Session holds the client-side state of the directory: the loaded list, the rows edited
// since the last save, the add-employee draft and the sort settings.
//
// A Session is not safe for concurrent use.
type Session struct {
	api API

	employees []domain.Employee

	// dirty holds one full row per edited id; dirtyOrder keeps first-edit order
	dirty      map[string]domain.Employee
	dirtyOrder []string

	draft       domain.Employee
	showAddForm bool

	sortBy    string
	sortOrder string
}

// NewSession creates an empty session sorted by first name, ascending
func NewSession(api API) *Session {
	return &Session{
		api:       api,
		dirty:     map[string]domain.Employee{},
		sortBy:    domain.FieldFirstName,
		sortOrder: OrderAsc,
	}
}

// Load replaces the local list with the server's. Pending edits are kept but no longer
// reflected in the list until Restore or Edit touches them again.
func (s *Session) Load(ctx context.Context) error {
	employees, err := s.api.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load employees: %w", err)
	}
	s.employees = employees
	return nil
}

// Employees returns a snapshot of the loaded list in display order
func (s *Session) Employees() []domain.Employee {
	return slices.Clone(s.employees)
}

// SortSettings returns the current sort key and order
func (s *Session) SortSettings() (string, string) {
	return s.sortBy, s.sortOrder
}

// SetSort changes the sort key and order and re-sorts the list
func (s *Session) SetSort(key, order string) error {
	switch key {
	case domain.FieldFirstName, domain.FieldLastName, domain.FieldPosition:
	default:
		return fmt.Errorf("cannot sort by %q", key)
	}
	if order != OrderAsc && order != OrderDesc {
		return fmt.Errorf("unknown sort order %q", order)
	}
	s.sortBy, s.sortOrder = key, order
	s.Sort()
	return nil
}

// Sort re-orders the list by the current settings. The comparison is byte-wise, so
// upper case sorts before lower case; equal keys keep their relative order.
func (s *Session) Sort() {
	key, desc := s.sortBy, s.sortOrder == OrderDesc
	slices.SortStableFunc(s.employees, func(a, b domain.Employee) int {
		av, _ := a.Get(key)
		bv, _ := b.Get(key)
		if desc {
			return strings.Compare(bv, av)
		}
		return strings.Compare(av, bv)
	})
}

// Edit sets one field of a loaded employee and records the row in the dirty set.
// Repeated edits of the same id merge into a single entry.
func (s *Session) Edit(id, field, value string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmployeeNotFound, id)
	}
	if !s.employees[i].Set(field, value) {
		return fmt.Errorf("unknown field %q", field)
	}

	entry, ok := s.dirty[id]
	if !ok {
		entry = s.employees[i]
		s.dirtyOrder = append(s.dirtyOrder, id)
	}
	entry.Set(field, value)
	s.dirty[id] = entry
	return nil
}

// Dirty returns the pending rows in the order they were first edited
func (s *Session) Dirty() []domain.Employee {
	out := make([]domain.Employee, 0, len(s.dirtyOrder))
	for _, id := range s.dirtyOrder {
		out = append(out, s.dirty[id])
	}
	return out
}

// Restore replaces the dirty set with rows saved earlier and overlays them on the loaded list
func (s *Session) Restore(pending []domain.Employee) {
	s.clearDirty()
	for _, row := range pending {
		if row.ID == "" {
			continue
		}
		if _, ok := s.dirty[row.ID]; !ok {
			s.dirtyOrder = append(s.dirtyOrder, row.ID)
		}
		s.dirty[row.ID] = row
		if i := s.indexOf(row.ID); i >= 0 {
			s.employees[i] = row
		}
	}
}

// Discard drops every pending edit. The list keeps edited values until the next Load.
func (s *Session) Discard() {
	s.clearDirty()
}

// Draft returns the add-employee draft
func (s *Session) Draft() domain.Employee {
	return s.draft
}

// SetDraftField sets one field of the draft
func (s *Session) SetDraftField(field, value string) error {
	if !s.draft.Set(field, value) {
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// ResetDraft clears the draft
func (s *Session) ResetDraft() {
	s.draft = domain.Employee{}
}

// ShowAddForm reports whether the add form is expanded
func (s *Session) ShowAddForm() bool {
	return s.showAddForm
}

// ToggleAddForm expands or collapses the add form
func (s *Session) ToggleAddForm() {
	s.showAddForm = !s.showAddForm
}

// AddEmployee validates the draft and creates it. On success the list is re-fetched, the
// draft reset and the add form collapsed. Validation failures send nothing.
func (s *Session) AddEmployee(ctx context.Context) error {
	d := s.draft
	if d.FirstName == "" || d.LastName == "" || d.Position == "" || d.Phone == "" || d.Email == "" {
		return &ValidationError{Message: MsgFillAllFields}
	}
	if !domain.ValidEmail(d.Email) {
		return &ValidationError{Message: MsgInvalidEmail}
	}
	if s.emailTaken(d.Email, "") {
		return &ValidationError{Message: MsgEmailInUse}
	}

	d.ID = ""
	if _, err := s.api.Create(ctx, []domain.Employee{d}); err != nil {
		return fmt.Errorf("failed to add employee: %w", err)
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.ResetDraft()
	s.showAddForm = false
	return nil
}

// SaveChanges validates every pending row and submits them as one update batch. The first
// invalid row aborts the save. On success the dirty set is cleared, the list re-fetched and
// the server's per-item result returned, including its errors.
func (s *Session) SaveChanges(ctx context.Context) (*domain.BatchUpdateResult, error) {
	pending := s.Dirty()
	for _, row := range pending {
		if !domain.ValidEmail(row.Email) {
			return nil, &ValidationError{Message: fmt.Sprintf(msgInvalidEmailOf, row.FirstName, row.LastName)}
		}
		if s.emailTaken(row.Email, row.ID) {
			return nil, &ValidationError{Message: fmt.Sprintf(msgDuplicateOf, row.FirstName, row.LastName)}
		}
	}

	patches := make([]domain.EmployeePatch, 0, len(pending))
	for _, row := range pending {
		patches = append(patches, domain.PatchFrom(row))
	}
	result, err := s.api.Update(ctx, patches)
	if err != nil {
		return nil, fmt.Errorf("failed to save changes: %w", err)
	}

	s.clearDirty()
	if err := s.Load(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Session) emailTaken(email, excludeID string) bool {
	return slices.ContainsFunc(s.employees, func(e domain.Employee) bool {
		return e.Email == email && e.ID != excludeID
	})
}

func (s *Session) indexOf(id string) int {
	return slices.IndexFunc(s.employees, func(e domain.Employee) bool { return e.ID == id })
}

func (s *Session) clearDirty() {
	s.dirty = map[string]domain.Employee{}
	s.dirtyOrder = nil
}
