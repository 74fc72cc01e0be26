package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hse-api/internal/models"
)

const employeeSelect = `SELECT e.id, e.company_id, e.personnel_number, e.full_name, e.email, e.position, e.department_id,
d.name AS department_name, e.location, e.exposure_group, e.line_manager, e.active, e.hired_on, e.created_at, e.updated_at
FROM employees e LEFT JOIN departments d ON d.id = e.department_id`

// EmployeeRepository persists employees.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns every employee of the company ordered by name.
func (r *EmployeeRepository) List(ctx context.Context, companyID string) ([]models.Employee, error) {
	query := employeeSelect + ` WHERE e.company_id = $1 ORDER BY e.full_name ASC`
	var out []models.Employee
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return out, nil
}

// ListActive returns the active employees of the company ordered by name.
func (r *EmployeeRepository) ListActive(ctx context.Context, companyID string) ([]models.Employee, error) {
	query := employeeSelect + ` WHERE e.company_id = $1 AND e.active = TRUE ORDER BY e.full_name ASC`
	var out []models.Employee
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return out, nil
}

// FindByID returns one employee of the company.
func (r *EmployeeRepository) FindByID(ctx context.Context, companyID, id string) (*models.Employee, error) {
	query := employeeSelect + ` WHERE e.company_id = $1 AND e.id = $2`
	var e models.Employee
	if err := r.db.GetContext(ctx, &e, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &e, nil
}

// Create inserts an employee.
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	const query = `INSERT INTO employees (id, company_id, personnel_number, full_name, email, position, department_id, location, exposure_group, line_manager, active, hired_on, created_at, updated_at)
VALUES (:id, :company_id, :personnel_number, :full_name, :email, :position, :department_id, :location, :exposure_group, :line_manager, :active, :hired_on, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an employee.
func (r *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	e.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET personnel_number = :personnel_number, full_name = :full_name, email = :email,
position = :position, department_id = :department_id, location = :location, exposure_group = :exposure_group,
line_manager = :line_manager, active = :active, hired_on = :hired_on, updated_at = :updated_at
WHERE id = :id AND company_id = :company_id`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an employee so training history stays intact.
func (r *EmployeeRepository) Deactivate(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE employees SET active = FALSE, updated_at = $3 WHERE company_id = $1 AND id = $2`, companyID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	return expectAffected(res)
}
