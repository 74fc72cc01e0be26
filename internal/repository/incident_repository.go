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

const incidentSelect = `SELECT i.id, i.company_id, i.title, i.description, i.type, i.severity, i.status, i.occurred_on,
i.department_id, d.name AS department_name, i.location, i.reported_by, i.assignee_id, a.full_name AS assignee_name,
i.created_at, i.updated_at
FROM incidents i
LEFT JOIN departments d ON d.id = i.department_id
LEFT JOIN employees a ON a.id = i.assignee_id`

// IncidentRepository persists incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// List returns the company's incidents, most recent occurrence first.
func (r *IncidentRepository) List(ctx context.Context, companyID string) ([]models.Incident, error) {
	query := incidentSelect + ` WHERE i.company_id = $1 ORDER BY i.occurred_on DESC NULLS LAST, i.created_at DESC`
	var out []models.Incident
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

// FindByID returns one incident of the company.
func (r *IncidentRepository) FindByID(ctx context.Context, companyID, id string) (*models.Incident, error) {
	query := incidentSelect + ` WHERE i.company_id = $1 AND i.id = $2`
	var inc models.Incident
	if err := r.db.GetContext(ctx, &inc, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find incident: %w", err)
	}
	return &inc, nil
}

// Create inserts an incident.
func (r *IncidentRepository) Create(ctx context.Context, inc *models.Incident) error {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inc.CreatedAt, inc.UpdatedAt = now, now
	const query = `INSERT INTO incidents (id, company_id, title, description, type, severity, status, occurred_on, department_id, location, reported_by, assignee_id, created_at, updated_at)
VALUES (:id, :company_id, :title, :description, :type, :severity, :status, :occurred_on, :department_id, :location, :reported_by, :assignee_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inc); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update overwrites an incident in place.
func (r *IncidentRepository) Update(ctx context.Context, inc *models.Incident) error {
	inc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE incidents SET title = :title, description = :description, type = :type, severity = :severity,
status = :status, occurred_on = :occurred_on, department_id = :department_id, location = :location,
assignee_id = :assignee_id, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, inc)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an incident.
func (r *IncidentRepository) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return expectAffected(res)
}
