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

const investigationSelect = `SELECT v.id, v.company_id, v.incident_id, v.code, v.title, v.status, v.investigator_id,
e.full_name AS investigator_name, v.started_on, v.due_on, v.root_cause, v.findings, v.created_at, v.updated_at
FROM investigations v LEFT JOIN employees e ON e.id = v.investigator_id`

// InvestigationRepository persists investigations.
type InvestigationRepository struct {
	db *sqlx.DB
}

// NewInvestigationRepository constructs the repository.
func NewInvestigationRepository(db *sqlx.DB) *InvestigationRepository {
	return &InvestigationRepository{db: db}
}

// List returns the company's investigations ordered by code.
func (r *InvestigationRepository) List(ctx context.Context, companyID string) ([]models.Investigation, error) {
	query := investigationSelect + ` WHERE v.company_id = $1 ORDER BY v.code ASC`
	var out []models.Investigation
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	return out, nil
}

// FindByID returns one investigation of the company.
func (r *InvestigationRepository) FindByID(ctx context.Context, companyID, id string) (*models.Investigation, error) {
	query := investigationSelect + ` WHERE v.company_id = $1 AND v.id = $2`
	var inv models.Investigation
	if err := r.db.GetContext(ctx, &inv, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find investigation: %w", err)
	}
	return &inv, nil
}

// CountOpen returns how many investigations are not completed.
func (r *InvestigationRepository) CountOpen(ctx context.Context, companyID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM investigations WHERE company_id = $1 AND status <> 'completed'`, companyID); err != nil {
		return 0, fmt.Errorf("count open investigations: %w", err)
	}
	return n, nil
}

// Create inserts an investigation. A duplicate code violates a unique constraint.
func (r *InvestigationRepository) Create(ctx context.Context, inv *models.Investigation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	const query = `INSERT INTO investigations (id, company_id, incident_id, code, title, status, investigator_id, started_on, due_on, root_cause, findings, created_at, updated_at)
VALUES (:id, :company_id, :incident_id, :code, :title, :status, :investigator_id, :started_on, :due_on, :root_cause, :findings, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("create investigation: %w", err)
	}
	return nil
}

// Update overwrites an investigation in place.
func (r *InvestigationRepository) Update(ctx context.Context, inv *models.Investigation) error {
	inv.UpdatedAt = time.Now().UTC()
	const query = `UPDATE investigations SET incident_id = :incident_id, code = :code, title = :title, status = :status,
investigator_id = :investigator_id, started_on = :started_on, due_on = :due_on, root_cause = :root_cause,
findings = :findings, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		return fmt.Errorf("update investigation: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an investigation.
func (r *InvestigationRepository) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investigations WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("delete investigation: %w", err)
	}
	return expectAffected(res)
}
