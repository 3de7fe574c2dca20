package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/reliability/circuitbreaker"
)

type failingRepo struct {
	*MemoryEmployeeRepository
	err   error
	calls int
}

func (f *failingRepo) List(ctx context.Context) ([]*domain.Employee, error) {
	f.calls++
	return nil, f.err
}

func TestBreakerOpensOnStoreFailures(t *testing.T) {
	inner := &failingRepo{MemoryEmployeeRepository: NewMemoryEmployeeRepository(), err: errors.New("connection refused")}
	repo := NewBreakerEmployeeRepository(inner, circuitbreaker.NewCircuitBreaker(2, 1, time.Hour))
	ctx := context.Background()

	_, _ = repo.List(ctx)
	_, _ = repo.List(ctx)
	_, err := repo.List(ctx)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker(1, 1, time.Hour)
	repo := NewBreakerEmployeeRepository(NewMemoryEmployeeRepository(), cb)
	name := "X"

	for i := 0; i < 3; i++ {
		_, err := repo.FindByIDAndUpdate(context.Background(), "999", domain.EmployeePatch{FirstName: &name})
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}
