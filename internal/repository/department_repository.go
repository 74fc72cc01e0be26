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

// DepartmentRepository persists departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns the company's departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context, companyID string) ([]models.Department, error) {
	const query = `SELECT id, company_id, name, location, created_at, updated_at FROM departments WHERE company_id = $1 ORDER BY name ASC`
	var out []models.Department
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

// FindByID returns one department of the company.
func (r *DepartmentRepository) FindByID(ctx context.Context, companyID, id string) (*models.Department, error) {
	const query = `SELECT id, company_id, name, location, created_at, updated_at FROM departments WHERE company_id = $1 AND id = $2`
	var d models.Department
	if err := r.db.GetContext(ctx, &d, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &d, nil
}

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, d *models.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	const query = `INSERT INTO departments (id, company_id, name, location, created_at, updated_at) VALUES (:id, :company_id, :name, :location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update renames or relocates a department.
func (r *DepartmentRepository) Update(ctx context.Context, d *models.Department) error {
	d.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, location = :location, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department. References held by other records are weak and left dangling.
func (r *DepartmentRepository) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return expectAffected(res)
}

// expectAffected maps a zero-row mutation to sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
