package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/reliability/circuitbreaker"
)

// BreakerEmployeeRepository guards a store with a circuit breaker. Not-found results are
// normal answers and do not trip it.
type BreakerEmployeeRepository struct {
	next domain.EmployeeRepository
	cb   *circuitbreaker.CircuitBreaker
}

// NewBreakerEmployeeRepository wraps next with cb
func NewBreakerEmployeeRepository(next domain.EmployeeRepository, cb *circuitbreaker.CircuitBreaker) *BreakerEmployeeRepository {
	cb.SetFailureClassifier(func(err error) bool {
		return err != nil && !errors.Is(err, domain.ErrEmployeeNotFound) && !errors.Is(err, context.Canceled)
	})
	return &BreakerEmployeeRepository{next: next, cb: cb}
}

// List delegates when the circuit is closed
func (r *BreakerEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	var out []*domain.Employee
	err := r.cb.Execute(func() error {
		var err error
		out, err = r.next.List(ctx)
		return err
	})
	return out, wrapOpen(err)
}

// Insert delegates when the circuit is closed
func (r *BreakerEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	return wrapOpen(r.cb.Execute(func() error {
		return r.next.Insert(ctx, e)
	}))
}

// FindByIDAndUpdate delegates when the circuit is closed
func (r *BreakerEmployeeRepository) FindByIDAndUpdate(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	var out *domain.Employee
	err := r.cb.Execute(func() error {
		var err error
		out, err = r.next.FindByIDAndUpdate(ctx, id, patch)
		return err
	})
	return out, wrapOpen(err)
}

// Ping bypasses the breaker so readiness reflects the real store
func (r *BreakerEmployeeRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func wrapOpen(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
