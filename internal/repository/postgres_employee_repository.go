package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

const employeesSchema = `
	CREATE TABLE IF NOT EXISTS employees (
		seq        BIGSERIAL,
		id         TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		position   TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT ''
	)
`

// PostgresEmployeeRepository implements domain.EmployeeRepository using PostgreSQL
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the employees table when it does not exist yet
func (r *PostgresEmployeeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, employeesSchema); err != nil {
		return fmt.Errorf("failed to create employees table: %w", err)
	}
	return nil
}

// List returns every employee in insertion order
func (r *PostgresEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	query := `
		SELECT id, first_name, last_name, position, phone, email
		FROM employees
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list employees", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []*domain.Employee{}
	for rows.Next() {
		e := &domain.Employee{}
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Position, &e.Phone, &e.Email); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

// Insert creates a new employee row with a fresh identifier
func (r *PostgresEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	query := `
		INSERT INTO employees (id, first_name, last_name, position, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, query, id, e.FirstName, e.LastName, e.Position, e.Phone, e.Email); err != nil {
		r.logger.Error("failed to insert employee",
			slog.String("email", e.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to insert employee: %w", err)
	}

	e.ID = id
	return nil
}

// FindByIDAndUpdate updates the present patch fields and returns the row as stored
func (r *PostgresEmployeeRepository) FindByIDAndUpdate(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	query := `
		UPDATE employees
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    position   = COALESCE($4, position),
		    phone      = COALESCE($5, phone),
		    email      = COALESCE($6, email)
		WHERE id = $1
		RETURNING id, first_name, last_name, position, phone, email
	`

	e := &domain.Employee{}
	err := r.db.QueryRowContext(ctx, query,
		id,
		nullable(patch.FirstName),
		nullable(patch.LastName),
		nullable(patch.Position),
		nullable(patch.Phone),
		nullable(patch.Email),
	).Scan(&e.ID, &e.FirstName, &e.LastName, &e.Position, &e.Phone, &e.Email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	return e, nil
}

// Ping checks database connectivity
func (r *PostgresEmployeeRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
