package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

// MemoryEmployeeRepository keeps employees in process memory, in insertion order
type MemoryEmployeeRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Employee
	order []string
}

// NewMemoryEmployeeRepository creates an empty in-memory store
func NewMemoryEmployeeRepository() *MemoryEmployeeRepository {
	return &MemoryEmployeeRepository{byID: map[string]*domain.Employee{}}
}

// List returns copies of all employees
func (r *MemoryEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Employee, 0, len(r.order))
	for _, id := range r.order {
		e := *r.byID[id]
		out = append(out, &e)
	}
	return out, nil
}

// Insert assigns a new identifier and stores a copy of e
func (r *MemoryEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.NewString()
	stored := *e
	r.byID[e.ID] = &stored
	r.order = append(r.order, e.ID)
	return nil
}

// FindByIDAndUpdate applies patch in place and returns a copy of the result
func (r *MemoryEmployeeRepository) FindByIDAndUpdate(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	patch.Apply(stored)
	updated := *stored
	return &updated, nil
}

// Seed stores employees under their own identifiers, minting one where it is empty
func (r *MemoryEmployeeRepository) Seed(employees ...domain.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range employees {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, exists := r.byID[e.ID]; !exists {
			r.order = append(r.order, e.ID)
		}
		stored := e
		r.byID[e.ID] = &stored
	}
}

// Ping always succeeds
func (r *MemoryEmployeeRepository) Ping(ctx context.Context) error {
	return nil
}
