package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/mongo"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/employeedir/pkg/database"
)

// absentID is a well-formed ObjectID hex that no backend will have minted
const absentID = "000000000000000000000000"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runEmployeeRepositoryContract(t *testing.T, repo domain.EmployeeRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	before, err := repo.List(ctx)
	require.NoError(t, err)

	e := &domain.Employee{ID: "ignored", FirstName: "Ann", LastName: "Lee", Position: "Eng", Phone: "555", Email: "ann@x.com"}
	require.NoError(t, repo.Insert(ctx, e))
	require.NotEmpty(t, e.ID)
	assert.NotEqual(t, "ignored", e.ID)

	after, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, *e, *after[len(after)-1])

	email := "ann@y.com"
	updated, err := repo.FindByIDAndUpdate(ctx, e.ID, domain.EmployeePatch{ID: e.ID, Email: &email})
	require.NoError(t, err)
	want := *e
	want.Email = email
	assert.Equal(t, want, *updated)

	_, err = repo.FindByIDAndUpdate(ctx, absentID, domain.EmployeePatch{ID: absentID, Email: &email})
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
	_, err = repo.FindByIDAndUpdate(ctx, "not-an-id", domain.EmployeePatch{ID: "not-an-id", Email: &email})
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestMemoryEmployeeRepositoryContract(t *testing.T) {
	runEmployeeRepositoryContract(t, NewMemoryEmployeeRepository())
}

func TestRedisEmployeeRepositoryContract(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := redis.NewClient(context.Background(), url, discardLogger())
	require.NoError(t, err)
	defer client.Close()

	runEmployeeRepositoryContract(t, NewRedisEmployeeRepository(client, discardLogger()))
}

func TestPostgresEmployeeRepositoryContract(t *testing.T) {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	pool, err := database.NewConnectionPool(context.Background(), &database.Config{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("TEST_DATABASE_USER"),
		Password: os.Getenv("TEST_DATABASE_PASSWORD"),
		Database: os.Getenv("TEST_DATABASE_NAME"),
		SSLMode:  "disable",
	}, discardLogger())
	require.NoError(t, err)
	defer pool.Close()

	repo := NewPostgresEmployeeRepository(pool.GetDB(), discardLogger())
	require.NoError(t, repo.EnsureSchema(context.Background()))
	runEmployeeRepositoryContract(t, repo)
}

func TestMongoEmployeeRepositoryContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	client, err := mongo.NewClient(context.Background(), uri, "employeedir_test", discardLogger())
	require.NoError(t, err)
	defer client.Close()

	runEmployeeRepositoryContract(t, NewMongoEmployeeRepository(client.Collection(EmployeeCollection), discardLogger()))
}
