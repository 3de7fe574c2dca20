package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(s string) *string { return &s }

// flakyRepo fails updates for the ids in failOn and counts List calls
type flakyRepo struct {
	*repository.MemoryEmployeeRepository
	failOn    map[string]bool
	failAdd   bool
	listCalls atomic.Int32
}

func (f *flakyRepo) List(ctx context.Context) ([]*domain.Employee, error) {
	f.listCalls.Add(1)
	return f.MemoryEmployeeRepository.List(ctx)
}

func (f *flakyRepo) Insert(ctx context.Context, e *domain.Employee) error {
	if f.failAdd && e.FirstName == "Bad" {
		return errors.New("validation failed")
	}
	return f.MemoryEmployeeRepository.Insert(ctx, e)
}

func (f *flakyRepo) FindByIDAndUpdate(ctx context.Context, id string, p domain.EmployeePatch) (*domain.Employee, error) {
	if f.failOn[id] {
		return nil, errors.New("write conflict")
	}
	return f.MemoryEmployeeRepository.FindByIDAndUpdate(ctx, id, p)
}

func newService(t *testing.T, opts Options) (*DirectoryService, *flakyRepo) {
	t.Helper()
	repo := &flakyRepo{MemoryEmployeeRepository: repository.NewMemoryEmployeeRepository(), failOn: map[string]bool{}}
	if opts.UpdateConcurrency == 0 {
		opts.UpdateConcurrency = 4
	}
	return NewDirectoryService(repo, quietLogger(), opts), repo
}

func seed(t *testing.T, s *DirectoryService, employees ...domain.Employee) []domain.Employee {
	t.Helper()
	created, err := s.Create(context.Background(), employees)
	require.NoError(t, err)
	return created
}

func TestCreateStripsIDAndKeepsFields(t *testing.T) {
	s, _ := newService(t, Options{})
	in := domain.Employee{ID: "client-id", FirstName: "Ann", LastName: "Lee", Position: "Eng", Phone: "555", Email: "ann@x.com"}

	created := seed(t, s, in)

	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)
	assert.NotEqual(t, "client-id", created[0].ID)
	in.ID = created[0].ID
	assert.Equal(t, in, created[0])
}

func TestCreateFailsWholeBatchOnInsertError(t *testing.T) {
	s, repo := newService(t, Options{UpdateConcurrency: 1})
	repo.failAdd = true

	_, err := s.Create(context.Background(), []domain.Employee{{FirstName: "Ok"}, {FirstName: "Bad"}})
	assert.Error(t, err)
}

func TestCreateRejectsBadEmailWhenValidationEnabled(t *testing.T) {
	s, repo := newService(t, Options{ValidateEmail: true})

	_, err := s.Create(context.Background(), []domain.Employee{{FirstName: "A", Email: "nope"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	all, _ := repo.MemoryEmployeeRepository.List(context.Background())
	assert.Empty(t, all)
}

func TestUpdatePartitionsEveryItem(t *testing.T) {
	s, repo := newService(t, Options{})
	created := seed(t, s,
		domain.Employee{FirstName: "Ann", Email: "ann@x.com"},
		domain.Employee{FirstName: "Bob", Email: "bob@x.com"},
	)
	repo.failOn[created[1].ID] = true

	patches := []domain.EmployeePatch{
		{ID: created[0].ID, Email: ptr("bad")},
		{ID: "999", FirstName: ptr("X")},
		{FirstName: ptr("no id")},
		{ID: created[1].ID, Position: ptr("Ops")},
	}
	res := s.Update(context.Background(), patches)

	assert.Equal(t, len(patches), res.Len())
	require.Len(t, res.SuccessfulUpdates, 1)
	assert.Equal(t, http.StatusOK, res.SuccessfulUpdates[0].Status)
	assert.Equal(t, "bad", res.SuccessfulUpdates[0].UpdatedEmployee.Email)
	assert.Equal(t, "Ann", res.SuccessfulUpdates[0].UpdatedEmployee.FirstName)

	require.Len(t, res.Errors, 3)
	assert.Equal(t, domain.UpdateError{Status: http.StatusNotFound, Message: "Employee with id 999 not found", ID: "999"}, res.Errors[0])
	assert.Equal(t, http.StatusBadRequest, res.Errors[1].Status)
	assert.Equal(t, domain.MsgMissingID, res.Errors[1].Message)
	assert.Equal(t, http.StatusInternalServerError, res.Errors[2].Status)
	assert.Equal(t, domain.MsgUpdateError, res.Errors[2].Message)
}

func TestUpdateMissingIDNeverMutates(t *testing.T) {
	s, _ := newService(t, Options{})
	created := seed(t, s, domain.Employee{FirstName: "Ann"})

	res := s.Update(context.Background(), []domain.EmployeePatch{{FirstName: ptr("Changed")}})
	require.Len(t, res.Errors, 1)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created, all)
}

func TestUpdateEmptyBatchHasEmptyBuckets(t *testing.T) {
	s, _ := newService(t, Options{})
	res := s.Update(context.Background(), nil)
	assert.NotNil(t, res.SuccessfulUpdates)
	assert.NotNil(t, res.Errors)
	assert.Zero(t, res.Len())
}

func TestUpdateValidatesEmailWhenEnabled(t *testing.T) {
	s, _ := newService(t, Options{ValidateEmail: true})
	created := seed(t, s, domain.Employee{FirstName: "Ann", Email: "ann@x.com"})

	res := s.Update(context.Background(), []domain.EmployeePatch{{ID: created[0].ID, Email: ptr("bad")}})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusBadRequest, res.Errors[0].Status)
}

func TestListCacheInvalidatedByWrites(t *testing.T) {
	s, repo := newService(t, Options{ListCacheTTL: time.Minute})
	created := seed(t, s, domain.Employee{FirstName: "Ann"})

	_, err := s.List(context.Background())
	require.NoError(t, err)
	_, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.listCalls.Load())

	s.Update(context.Background(), []domain.EmployeePatch{{ID: created[0].ID, FirstName: ptr("Anne")}})
	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Anne", all[0].FirstName)
	assert.Equal(t, int32(2), repo.listCalls.Load())
}

// gatedRepo pauses List after it has read the store until release is closed
type gatedRepo struct {
	*repository.MemoryEmployeeRepository
	read    chan struct{}
	release chan struct{}
	gate    atomic.Bool
}

func (g *gatedRepo) List(ctx context.Context) ([]*domain.Employee, error) {
	out, err := g.MemoryEmployeeRepository.List(ctx)
	if g.gate.CompareAndSwap(true, false) {
		close(g.read)
		<-g.release
	}
	return out, err
}

func TestListCacheNotPoisonedByConcurrentWrite(t *testing.T) {
	repo := &gatedRepo{
		MemoryEmployeeRepository: repository.NewMemoryEmployeeRepository(),
		read:                     make(chan struct{}),
		release:                  make(chan struct{}),
	}
	repo.Seed(domain.Employee{ID: "1", FirstName: "Ann"})
	s := NewDirectoryService(repo, quietLogger(), Options{UpdateConcurrency: 2, ListCacheTTL: time.Minute})
	ctx := context.Background()

	repo.gate.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.List(ctx)
	}()
	<-repo.read

	res := s.Update(ctx, []domain.EmployeePatch{{ID: "1", FirstName: ptr("Bo")}})
	require.Len(t, res.SuccessfulUpdates, 1)
	close(repo.release)
	<-done

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bo", all[0].FirstName)
}
