package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/handler"
	"github.com/aryan0dhankhar/employeedir/internal/repository"
	"github.com/aryan0dhankhar/employeedir/internal/service"
)

type testServer struct {
	*httptest.Server
	repo     *repository.MemoryEmployeeRepository
	requests map[string]*atomic.Int32
}

func (ts *testServer) count(method string) int {
	return int(ts.requests[method].Load())
}

func newTestServer(t *testing.T, seed ...domain.Employee) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryEmployeeRepository()
	repo.Seed(seed...)

	svc := service.NewDirectoryService(repo, logger, service.Options{UpdateConcurrency: 4})
	mux := http.NewServeMux()
	handler.NewEmployeesHandler(svc, nil, logger).Register(mux, "/api")

	ts := &testServer{repo: repo, requests: map[string]*atomic.Int32{}}
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		ts.requests[m] = &atomic.Int32{}
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ts.requests[r.Method]; ok {
			c.Add(1)
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newLoadedSession(t *testing.T, ts *testServer) *Session {
	t.Helper()
	s := NewSession(NewClient(ts.URL+"/api", nil))
	require.NoError(t, s.Load(context.Background()))
	return s
}

var (
	ann = domain.Employee{ID: "1", FirstName: "Ann", LastName: "Lee", Position: "Eng", Phone: "555", Email: "ann@x.com"}
	bob = domain.Employee{ID: "2", FirstName: "bob", LastName: "Ray", Position: "Ops", Phone: "556", Email: "bob@x.com"}
	cat = domain.Employee{ID: "3", FirstName: "Cat", LastName: "Lee", Position: "Eng", Phone: "557", Email: "cat@x.com"}
)

func TestClientListCreateUpdate(t *testing.T) {
	ts := newTestServer(t, ann)
	c := NewClient(ts.URL+"/api/", nil)
	ctx := context.Background()

	created, err := c.Create(ctx, []domain.Employee{{FirstName: "Dan", Email: "dan@x.com"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)

	email := "ann@y.com"
	res, err := c.Update(ctx, []domain.EmployeePatch{{ID: "1", Email: &email}, {ID: "999"}})
	require.NoError(t, err)
	assert.Len(t, res.SuccessfulUpdates, 1)
	assert.Len(t, res.Errors, 1)

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ann@y.com", all[0].Email)
}

func TestClientNon2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"failed to list employees"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).List(context.Background())
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
	assert.Equal(t, http.MethodGet, herr.Method)
	assert.Equal(t, "failed to list employees", herr.Message())
}

func TestSortIsStableIdempotentAndCaseSensitive(t *testing.T) {
	ts := newTestServer(t, bob, cat, ann)
	s := newLoadedSession(t, ts)

	require.NoError(t, s.SetSort(domain.FieldFirstName, OrderAsc))
	first := s.Employees()
	s.Sort()
	assert.Equal(t, first, s.Employees())
	// upper case before lower case
	assert.Equal(t, []string{"1", "3", "2"}, ids(first))

	require.NoError(t, s.SetSort(domain.FieldLastName, OrderAsc))
	// Ann and Cat tie on "Lee" and keep their previous relative order
	assert.Equal(t, []string{"1", "3", "2"}, ids(s.Employees()))

	require.NoError(t, s.SetSort(domain.FieldPosition, OrderDesc))
	assert.Equal(t, []string{"2", "1", "3"}, ids(s.Employees()))

	assert.Error(t, s.SetSort(domain.FieldEmail, OrderAsc))
	assert.Error(t, s.SetSort(domain.FieldFirstName, "sideways"))
}

func TestDoubleEditMergesIntoOneEntry(t *testing.T) {
	ts := newTestServer(t, ann, bob)
	s := newLoadedSession(t, ts)

	require.NoError(t, s.Edit("1", domain.FieldFirstName, "Anne"))
	require.NoError(t, s.Edit("1", domain.FieldEmail, "anne@x.com"))

	dirty := s.Dirty()
	require.Len(t, dirty, 1)
	assert.Equal(t, "Anne", dirty[0].FirstName)
	assert.Equal(t, "anne@x.com", dirty[0].Email)
	assert.Equal(t, "Lee", dirty[0].LastName)

	assert.Error(t, s.Edit("1", "salary", "1"))
	assert.ErrorIs(t, s.Edit("42", domain.FieldFirstName, "X"), domain.ErrEmployeeNotFound)
}

func TestAddEmployeeValidationNeverHitsNetwork(t *testing.T) {
	ts := newTestServer(t, ann)
	s := newLoadedSession(t, ts)
	ctx := context.Background()

	err := s.AddEmployee(ctx)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgFillAllFields, verr.Message)

	for field, value := range map[string]string{
		domain.FieldFirstName: "Dan", domain.FieldLastName: "Ng", domain.FieldPosition: "QA",
		domain.FieldPhone: "558", domain.FieldEmail: "not-an-email",
	} {
		require.NoError(t, s.SetDraftField(field, value))
	}
	require.ErrorAs(t, s.AddEmployee(ctx), &verr)
	assert.Equal(t, MsgInvalidEmail, verr.Message)

	require.NoError(t, s.SetDraftField(domain.FieldEmail, ann.Email))
	require.ErrorAs(t, s.AddEmployee(ctx), &verr)
	assert.Equal(t, MsgEmailInUse, verr.Message)

	assert.Zero(t, ts.count(http.MethodPost))
}

func TestAddEmployeeCreatesAndResets(t *testing.T) {
	ts := newTestServer(t, ann)
	s := newLoadedSession(t, ts)
	s.ToggleAddForm()
	require.True(t, s.ShowAddForm())

	draft := domain.Employee{FirstName: "Dan", LastName: "Ng", Position: "QA", Phone: "558", Email: "dan@x.com"}
	for _, f := range []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldPosition, domain.FieldPhone, domain.FieldEmail} {
		v, _ := draft.Get(f)
		require.NoError(t, s.SetDraftField(f, v))
	}

	require.NoError(t, s.AddEmployee(context.Background()))
	assert.Equal(t, 1, ts.count(http.MethodPost))
	assert.Len(t, s.Employees(), 2)
	assert.Equal(t, domain.Employee{}, s.Draft())
	assert.False(t, s.ShowAddForm())
}

func TestSaveChangesAbortsOnFirstInvalidRow(t *testing.T) {
	ts := newTestServer(t, ann, bob)
	s := newLoadedSession(t, ts)

	require.NoError(t, s.Edit("2", domain.FieldEmail, ann.Email))
	_, err := s.SaveChanges(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Duplicate email found for bob Ray.", verr.Message)

	// Ann no longer holds the address, so bob passes and Ann's format fails
	require.NoError(t, s.Edit("1", domain.FieldEmail, "broken"))
	_, err = s.SaveChanges(context.Background())
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid email format for Ann Lee.", verr.Message)

	assert.Zero(t, ts.count(http.MethodPut))
	assert.Len(t, s.Dirty(), 2)
}

func TestSaveChangesReturnsErrorsBucket(t *testing.T) {
	ts := newTestServer(t, ann, bob)
	s := newLoadedSession(t, ts)

	require.NoError(t, s.Edit("1", domain.FieldPosition, "Lead"))
	require.NoError(t, s.Edit("2", domain.FieldPhone, "999"))
	// a pending row whose employee no longer exists
	s.Restore(append(s.Dirty(), domain.Employee{ID: "404", FirstName: "Ghost", Email: "ghost@x.com"}))

	res, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.SuccessfulUpdates, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusNotFound, res.Errors[0].Status)

	assert.Empty(t, s.Dirty())
	assert.Equal(t, 1, ts.count(http.MethodPut))
	stored, err := ts.repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lead", stored[0].Position)
	assert.Equal(t, "999", stored[1].Phone)
}

func TestRestoreOverlaysPendingRows(t *testing.T) {
	ts := newTestServer(t, ann)
	s := newLoadedSession(t, ts)

	edited := ann
	edited.Position = "CTO"
	s.Restore([]domain.Employee{edited, {FirstName: "no id"}})

	assert.Equal(t, []domain.Employee{edited}, s.Dirty())
	assert.Equal(t, "CTO", s.Employees()[0].Position)
}

func TestLoadErrorWraps(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := NewSession(NewClient(srv.URL, nil)).Load(context.Background())
	var herr *HTTPError
	assert.True(t, errors.As(err, &herr))
}

func ids(employees []domain.Employee) []string {
	out := make([]string, len(employees))
	for i, e := range employees {
		out[i] = e.ID
	}
	return out
}
