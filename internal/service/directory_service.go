package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/observability/metrics"
	"github.com/aryan0dhankhar/employeedir/internal/observability/tracing"
	"github.com/aryan0dhankhar/employeedir/pkg/cache"
)

const listCacheKey = "employees:all"

// ValidationError rejects a whole create batch before anything is written
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Options tunes the directory service
type Options struct {
	// UpdateConcurrency bounds how many update items hit the store at once
	UpdateConcurrency int
	// ListCacheTTL caches List results; zero disables caching
	ListCacheTTL time.Duration
	// ValidateEmail rejects malformed emails server-side
	ValidateEmail bool
}

// DirectoryService translates directory operations into document store calls
type DirectoryService struct {
	repo    domain.EmployeeRepository
	logger  *slog.Logger
	opts    Options
	listing *cache.Cache[[]domain.Employee]
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(repo domain.EmployeeRepository, logger *slog.Logger, opts Options) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UpdateConcurrency < 1 {
		opts.UpdateConcurrency = 1
	}
	return &DirectoryService{
		repo:    repo,
		logger:  logger,
		opts:    opts,
		listing: cache.New[[]domain.Employee](),
	}
}

// List returns the full collection in store order
func (s *DirectoryService) List(ctx context.Context) ([]domain.Employee, error) {
	if cached, ok := s.listing.Get(listCacheKey); ok {
		metrics.ObserveListCache(true)
		return append([]domain.Employee(nil), cached...), nil
	}
	if s.opts.ListCacheTTL > 0 {
		metrics.ObserveListCache(false)
	}

	gen := s.listing.Generation()
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	employees := make([]domain.Employee, 0, len(stored))
	for _, e := range stored {
		employees = append(employees, *e)
	}
	// a write that landed while the store was being read makes this snapshot stale
	s.listing.SetIfCurrent(listCacheKey, employees, s.opts.ListCacheTTL, gen)
	return append([]domain.Employee(nil), employees...), nil
}

// Create inserts every item under a fresh identifier. Any client-supplied _id is ignored.
// The batch fails as a whole if any insertion fails; items already inserted stay.
func (s *DirectoryService) Create(ctx context.Context, items []domain.Employee) ([]domain.Employee, error) {
	ctx, span := tracing.Tracer().Start(ctx, "directory.create")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(items)))
	metrics.ObserveBatch("create", len(items))

	if s.opts.ValidateEmail {
		for _, item := range items {
			if !domain.ValidEmail(item.Email) {
				return nil, &ValidationError{Message: fmt.Sprintf("%s: %q", domain.MsgInvalidEmail, item.Email)}
			}
		}
	}

	created := make([]domain.Employee, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UpdateConcurrency)
	for i, item := range items {
		g.Go(func() error {
			e := item
			e.ID = ""
			if err := s.repo.Insert(gctx, &e); err != nil {
				return err
			}
			created[i] = e
			return nil
		})
	}

	err := g.Wait()
	if len(items) > 0 {
		s.listing.Invalidate("employees:")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		metrics.ObserveBatchItem("create", http.StatusInternalServerError)
		return nil, fmt.Errorf("failed to create employees: %w", err)
	}

	for range created {
		metrics.ObserveBatchItem("create", http.StatusOK)
	}
	s.logger.Info("employees created", slog.Int("count", len(created)))
	return created, nil
}

// Update applies every patch independently. A failing item never blocks or rolls back the
// others; each item lands in exactly one bucket of the result, in input order.
func (s *DirectoryService) Update(ctx context.Context, patches []domain.EmployeePatch) *domain.BatchUpdateResult {
	ctx, span := tracing.Tracer().Start(ctx, "directory.update")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(patches)))
	metrics.ObserveBatch("update", len(patches))

	type outcome struct {
		success *domain.UpdateSuccess
		failure *domain.UpdateError
	}
	outcomes := make([]outcome, len(patches))

	var g errgroup.Group
	g.SetLimit(s.opts.UpdateConcurrency)
	for i, patch := range patches {
		g.Go(func() error {
			updated, failure := s.updateOne(ctx, patch)
			if failure != nil {
				outcomes[i].failure = failure
			} else {
				outcomes[i].success = &domain.UpdateSuccess{Status: http.StatusOK, UpdatedEmployee: updated}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := domain.NewBatchUpdateResult()
	for _, o := range outcomes {
		if o.failure != nil {
			result.Errors = append(result.Errors, *o.failure)
			metrics.ObserveBatchItem("update", o.failure.Status)
			continue
		}
		result.SuccessfulUpdates = append(result.SuccessfulUpdates, *o.success)
		metrics.ObserveBatchItem("update", http.StatusOK)
	}

	if len(result.SuccessfulUpdates) > 0 {
		s.listing.Invalidate("employees:")
	}
	span.SetAttributes(
		attribute.Int("batch.succeeded", len(result.SuccessfulUpdates)),
		attribute.Int("batch.failed", len(result.Errors)),
	)
	s.logger.Info("employee update batch processed",
		slog.Int("succeeded", len(result.SuccessfulUpdates)),
		slog.Int("failed", len(result.Errors)),
	)
	return result
}

func (s *DirectoryService) updateOne(ctx context.Context, patch domain.EmployeePatch) (*domain.Employee, *domain.UpdateError) {
	if patch.ID == "" {
		return nil, &domain.UpdateError{Status: http.StatusBadRequest, Message: domain.MsgMissingID}
	}
	if s.opts.ValidateEmail && patch.Email != nil && !domain.ValidEmail(*patch.Email) {
		return nil, &domain.UpdateError{Status: http.StatusBadRequest, Message: domain.MsgInvalidEmail, ID: patch.ID}
	}

	updated, err := s.repo.FindByIDAndUpdate(ctx, patch.ID, patch)
	if errors.Is(err, domain.ErrEmployeeNotFound) {
		failure := domain.NotFound(patch.ID)
		return nil, &failure
	}
	if err != nil {
		s.logger.Error("failed to update employee",
			slog.String("employee_id", patch.ID),
			slog.String("error", err.Error()),
		)
		return nil, &domain.UpdateError{Status: http.StatusInternalServerError, Message: domain.MsgUpdateError, ID: patch.ID}
	}
	return updated, nil
}

// Ping reports whether the document store is reachable
func (s *DirectoryService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
