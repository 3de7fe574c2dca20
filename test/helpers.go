package test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/handler"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/employeedir/internal/observability/metrics"
	"github.com/aryan0dhankhar/employeedir/internal/repository"
	"github.com/aryan0dhankhar/employeedir/internal/security/audit"
	"github.com/aryan0dhankhar/employeedir/internal/security/middleware"
	"github.com/aryan0dhankhar/employeedir/internal/service"
)

// TestServerHelper runs the full HTTP stack against the in-memory store
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Mux    *http.ServeMux
	Repo   *repository.MemoryEmployeeRepository
}

func NewTestServer(t *testing.T, seed ...domain.Employee) *TestServerHelper {
	t.Helper()
	log := logger.NewLogger("error")
	repo := repository.NewMemoryEmployeeRepository()
	repo.Seed(seed...)

	directory := service.NewDirectoryService(repo, log, service.Options{UpdateConcurrency: 4})
	employees := handler.NewEmployeesHandler(directory, audit.NewLogger(log), log)
	health := handler.NewHealthHandler(directory, "memory", log)

	mux := http.NewServeMux()
	employees.Register(mux, "/api")
	employees.Register(mux, "/api/employees")
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptest.NewServer(
		middleware.ValidateJSONContentType(log)(metrics.HTTPMetricsMiddleware(mux)),
	)
	t.Cleanup(server.Close)

	return &TestServerHelper{
		Server: server,
		Logger: log,
		Mux:    mux,
		Repo:   repo,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
