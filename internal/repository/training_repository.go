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

const trainingSelect = `SELECT t.id, t.company_id, t.employee_id, e.full_name AS employee_name, d.name AS department_name,
t.title, t.completed_on, t.valid_until, t.status, t.created_at, t.updated_at
FROM trainings t
JOIN employees e ON e.id = t.employee_id
LEFT JOIN departments d ON d.id = e.department_id`

// TrainingRepository persists training records.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository constructs the repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// List returns the company's trainings grouped by employee name then title.
func (r *TrainingRepository) List(ctx context.Context, companyID string) ([]models.Training, error) {
	query := trainingSelect + ` WHERE t.company_id = $1 ORDER BY e.full_name ASC, t.title ASC`
	var out []models.Training
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	return out, nil
}

// ListExpiring returns trainings whose validity ends within [from, to].
func (r *TrainingRepository) ListExpiring(ctx context.Context, companyID string, from, to time.Time) ([]models.Training, error) {
	query := trainingSelect + ` WHERE t.company_id = $1 AND t.valid_until BETWEEN $2 AND $3 ORDER BY t.valid_until ASC`
	var out []models.Training
	if err := r.db.SelectContext(ctx, &out, query, companyID, from, to); err != nil {
		return nil, fmt.Errorf("list expiring trainings: %w", err)
	}
	return out, nil
}

// FindByID returns one training of the company.
func (r *TrainingRepository) FindByID(ctx context.Context, companyID, id string) (*models.Training, error) {
	query := trainingSelect + ` WHERE t.company_id = $1 AND t.id = $2`
	var t models.Training
	if err := r.db.GetContext(ctx, &t, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find training: %w", err)
	}
	return &t, nil
}

// Create inserts a training record.
func (r *TrainingRepository) Create(ctx context.Context, t *models.Training) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	const query = `INSERT INTO trainings (id, company_id, employee_id, title, completed_on, valid_until, status, created_at, updated_at)
VALUES (:id, :company_id, :employee_id, :title, :completed_on, :valid_until, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create training: %w", err)
	}
	return nil
}

// Update overwrites a training record.
func (r *TrainingRepository) Update(ctx context.Context, t *models.Training) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE trainings SET employee_id = :employee_id, title = :title, completed_on = :completed_on,
valid_until = :valid_until, status = :status, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a training record.
func (r *TrainingRepository) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trainings WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("delete training: %w", err)
	}
	return expectAffected(res)
}
