package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	"github.com/noah-isme/hse-api/pkg/database"
)

const riskSelect = `SELECT r.id, r.company_id, r.title, r.description, r.hazard_type, r.department_id, d.name AS department_name,
r.location, r.exposure_group, r.line_manager_id, lm.full_name AS line_manager_name, lm.email AS line_manager_email,
r.probability_before, r.severity_before, r.score_before, r.risk_level_before,
r.probability_after, r.severity_after, r.score_after, r.risk_level_after,
r.status, r.notes, r.assessed_on, r.approved_by, r.approved_at, r.created_by, r.created_at, r.updated_at
FROM risk_assessments r
LEFT JOIN departments d ON d.id = r.department_id
LEFT JOIN employees lm ON lm.id = r.line_manager_id`

const measureSelect = `SELECT m.id, m.risk_assessment_id, m.category, m.description, m.responsible_id, e.full_name AS responsible_name,
m.due_on, m.notes, m.status, m.created_at, m.updated_at
FROM risk_measures m LEFT JOIN employees e ON e.id = m.responsible_id`

const insertMeasure = `INSERT INTO risk_measures (id, risk_assessment_id, category, description, responsible_id, due_on, notes, status, created_at, updated_at)
VALUES (:id, :risk_assessment_id, :category, :description, :responsible_id, :due_on, :notes, :status, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET category = EXCLUDED.category, description = EXCLUDED.description,
responsible_id = EXCLUDED.responsible_id, due_on = EXCLUDED.due_on, notes = EXCLUDED.notes,
status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
WHERE risk_measures.risk_assessment_id = EXCLUDED.risk_assessment_id`

// RiskAssessmentRepository persists risk assessments together with their measures.
type RiskAssessmentRepository struct {
	db *sqlx.DB
}

// NewRiskAssessmentRepository constructs the repository.
func NewRiskAssessmentRepository(db *sqlx.DB) *RiskAssessmentRepository {
	return &RiskAssessmentRepository{db: db}
}

// List returns every assessment of the company, newest first, with measures attached.
func (r *RiskAssessmentRepository) List(ctx context.Context, companyID string) ([]models.RiskAssessment, error) {
	query := riskSelect + ` WHERE r.company_id = $1 ORDER BY r.created_at DESC`
	var out []models.RiskAssessment
	if err := r.db.SelectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	if err := r.attachMeasures(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns one assessment of the company with its measures.
func (r *RiskAssessmentRepository) FindByID(ctx context.Context, companyID, id string) (*models.RiskAssessment, error) {
	query := riskSelect + ` WHERE r.company_id = $1 AND r.id = $2`
	var a models.RiskAssessment
	if err := r.db.GetContext(ctx, &a, query, companyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find risk assessment: %w", err)
	}
	list := []models.RiskAssessment{a}
	if err := r.attachMeasures(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *RiskAssessmentRepository) attachMeasures(ctx context.Context, assessments []models.RiskAssessment) error {
	if len(assessments) == 0 {
		return nil
	}
	ids := make([]string, len(assessments))
	index := make(map[string]int, len(assessments))
	for i := range assessments {
		ids[i] = assessments[i].ID
		index[assessments[i].ID] = i
		assessments[i].Measures = []models.RiskMeasure{}
	}

	query := measureSelect + ` WHERE m.risk_assessment_id = ANY($1) ORDER BY m.created_at ASC, m.id ASC`
	var measures []models.RiskMeasure
	if err := r.db.SelectContext(ctx, &measures, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list risk measures: %w", err)
	}
	for _, m := range measures {
		if i, ok := index[m.RiskAssessmentID]; ok {
			assessments[i].Measures = append(assessments[i].Measures, m)
		}
	}
	return nil
}

// Create inserts the assessment and its measures in one transaction.
func (r *RiskAssessmentRepository) Create(ctx context.Context, a *models.RiskAssessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	const query = `INSERT INTO risk_assessments (id, company_id, title, description, hazard_type, department_id, location, exposure_group,
line_manager_id, probability_before, severity_before, score_before, risk_level_before, probability_after, severity_after,
score_after, risk_level_after, status, notes, assessed_on, created_by, created_at, updated_at)
VALUES (:id, :company_id, :title, :description, :hazard_type, :department_id, :location, :exposure_group,
:line_manager_id, :probability_before, :severity_before, :score_before, :risk_level_before, :probability_after, :severity_after,
:score_after, :risk_level_after, :status, :notes, :assessed_on, :created_by, :created_at, :updated_at)`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
			return fmt.Errorf("create risk assessment: %w", err)
		}
		return upsertMeasures(ctx, tx, a, now)
	})
}

// Update overwrites the assessment in place and replaces its measure set:
// measures with a known id are updated, new ones inserted, the rest removed.
func (r *RiskAssessmentRepository) Update(ctx context.Context, a *models.RiskAssessment) error {
	now := time.Now().UTC()
	a.UpdatedAt = now

	const query = `UPDATE risk_assessments SET title = :title, description = :description, hazard_type = :hazard_type,
department_id = :department_id, location = :location, exposure_group = :exposure_group, line_manager_id = :line_manager_id,
probability_before = :probability_before, severity_before = :severity_before, score_before = :score_before,
risk_level_before = :risk_level_before, probability_after = :probability_after, severity_after = :severity_after,
score_after = :score_after, risk_level_after = :risk_level_after, notes = :notes, assessed_on = :assessed_on,
updated_at = :updated_at WHERE id = :id AND company_id = :company_id`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, a)
		if err != nil {
			return fmt.Errorf("update risk assessment: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}

		keep := make([]string, 0, len(a.Measures))
		for i := range a.Measures {
			if a.Measures[i].ID == "" {
				a.Measures[i].ID = uuid.NewString()
			}
			keep = append(keep, a.Measures[i].ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM risk_measures WHERE risk_assessment_id = $1 AND NOT (id = ANY($2))`, a.ID, pq.Array(keep)); err != nil {
			return fmt.Errorf("prune risk measures: %w", err)
		}
		return upsertMeasures(ctx, tx, a, now)
	})
}

func upsertMeasures(ctx context.Context, tx *sqlx.Tx, a *models.RiskAssessment, now time.Time) error {
	for i := range a.Measures {
		m := &a.Measures[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.RiskAssessmentID = a.ID
		if m.Status == "" {
			m.Status = risk.StatusNotStarted
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertMeasure, m); err != nil {
			return fmt.Errorf("save risk measure: %w", err)
		}
	}
	return nil
}

// Delete removes the measures first and then the assessment, atomically.
func (r *RiskAssessmentRepository) Delete(ctx context.Context, companyID, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const measures = `DELETE FROM risk_measures WHERE risk_assessment_id IN (SELECT id FROM risk_assessments WHERE company_id = $1 AND id = $2)`
		if _, err := tx.ExecContext(ctx, measures, companyID, id); err != nil {
			return fmt.Errorf("delete risk measures: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM risk_assessments WHERE company_id = $1 AND id = $2`, companyID, id)
		if err != nil {
			return fmt.Errorf("delete risk assessment: %w", err)
		}
		return expectAffected(res)
	})
}

// Approve moves a draft to approved. sql.ErrNoRows means it was not a draft of the company.
func (r *RiskAssessmentRepository) Approve(ctx context.Context, companyID, id, approverID, notes string, at time.Time) error {
	const query = `UPDATE risk_assessments SET status = 'approved', notes = $3, approved_by = $4, approved_at = $5, updated_at = $5
WHERE company_id = $1 AND id = $2 AND status = 'draft'`
	res, err := r.db.ExecContext(ctx, query, companyID, id, notes, approverID, at)
	if err != nil {
		return fmt.Errorf("approve risk assessment: %w", err)
	}
	return expectAffected(res)
}

// UpdateMeasureStatus sets status on the listed measures of one assessment and returns how many changed.
func (r *RiskAssessmentRepository) UpdateMeasureStatus(ctx context.Context, assessmentID string, measureIDs []string, status risk.MeasureStatus) (int64, error) {
	const query = `UPDATE risk_measures SET status = $1, updated_at = $2 WHERE risk_assessment_id = $3 AND id = ANY($4)`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), assessmentID, pq.Array(measureIDs))
	if err != nil {
		return 0, fmt.Errorf("update measure status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
