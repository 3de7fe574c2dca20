package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/redis"
)

const employeeIndexKey = "employees"

// RedisEmployeeRepository stores each employee as a JSON document under employee:{id}.
// The employees list keeps insertion order.
type RedisEmployeeRepository struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisEmployeeRepository creates a new Redis-backed employee store
func NewRedisEmployeeRepository(redisClient *redis.Client, logger *slog.Logger) *RedisEmployeeRepository {
	return &RedisEmployeeRepository{
		redis:  redisClient,
		logger: logger,
	}
}

func employeeKey(id string) string {
	return fmt.Sprintf("employee:%s", id)
}

// List returns all employees in insertion order
func (r *RedisEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	ids, err := r.redis.LRange(ctx, employeeIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee ids: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Employee{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = employeeKey(id)
	}
	values, err := r.redis.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	employees := make([]*domain.Employee, 0, len(values))
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			r.logger.Warn("employee indexed but missing", slog.String("employee_id", ids[i]))
			continue
		}
		var e domain.Employee
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			r.logger.Error("failed to unmarshal employee", slog.String("key", keys[i]), slog.String("error", err.Error()))
			continue
		}
		e.ID = ids[i]
		employees = append(employees, &e)
	}
	return employees, nil
}

// Insert stores e under a new identifier
func (r *RedisEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	id := uuid.NewString()
	stored := *e
	stored.ID = id

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal employee: %w", err)
	}

	created, err := r.redis.SetNX(ctx, employeeKey(id), string(data))
	if err != nil {
		return fmt.Errorf("failed to store employee: %w", err)
	}
	if !created {
		return fmt.Errorf("employee id collision: %s", id)
	}
	if err := r.redis.RPush(ctx, employeeIndexKey, id); err != nil {
		return fmt.Errorf("failed to index employee: %w", err)
	}

	e.ID = id
	r.logger.Debug("employee inserted", slog.String("employee_id", id))
	return nil
}

// FindByIDAndUpdate reads, patches and rewrites the document. Concurrent writers to the
// same id race; the last write wins.
func (r *RedisEmployeeRepository) FindByIDAndUpdate(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	data, err := r.redis.Get(ctx, employeeKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	var e domain.Employee
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal employee: %w", err)
	}
	e.ID = id
	patch.Apply(&e)

	updated, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal employee: %w", err)
	}
	ok, err := r.redis.SetXX(ctx, employeeKey(id), string(updated))
	if err != nil {
		return nil, fmt.Errorf("failed to store employee: %w", err)
	}
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}

	r.logger.Debug("employee updated", slog.String("employee_id", id))
	return &e, nil
}

// Ping checks Redis connectivity
func (r *RedisEmployeeRepository) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx)
}
