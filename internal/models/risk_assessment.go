package models

import (
	"time"

	"github.com/noah-isme/hse-api/internal/risk"
)

// HazardType classifies the source of a hazard.
type HazardType string

const (
	HazardMechanical    HazardType = "mechanical"
	HazardElectrical    HazardType = "electrical"
	HazardChemical      HazardType = "chemical"
	HazardBiological    HazardType = "biological"
	HazardPhysical      HazardType = "physical"
	HazardErgonomic     HazardType = "ergonomic"
	HazardPsychosocial  HazardType = "psychosocial"
	HazardFire          HazardType = "fire"
	HazardEnvironmental HazardType = "environmental"
	HazardOther         HazardType = "other"
)

// MeasureCategory is the hierarchy-of-controls building block of a measure.
type MeasureCategory string

const (
	MeasureElimination    MeasureCategory = "elimination"
	MeasureSubstitution   MeasureCategory = "substitution"
	MeasureEngineering    MeasureCategory = "engineering_controls"
	MeasureAdministrative MeasureCategory = "administrative_controls"
	MeasurePPE            MeasureCategory = "ppe"
)

// AssessmentStatus is the approval state of a risk assessment.
type AssessmentStatus string

const (
	AssessmentDraft    AssessmentStatus = "draft"
	AssessmentApproved AssessmentStatus = "approved"
)

// RiskAssessment is one hazard assessment with before and after mitigation ratings.
// Score and level columns are derived and rewritten on every save.
type RiskAssessment struct {
	ID                string           `db:"id" json:"id"`
	CompanyID         string           `db:"company_id" json:"company_id"`
	Title             string           `db:"title" json:"title"`
	Description       string           `db:"description" json:"description"`
	HazardType        HazardType       `db:"hazard_type" json:"hazard_type"`
	DepartmentID      *string          `db:"department_id" json:"department_id,omitempty"`
	DepartmentName    *string          `db:"department_name" json:"department_name,omitempty"`
	Location          string           `db:"location" json:"location"`
	ExposureGroup     string           `db:"exposure_group" json:"exposure_group"`
	LineManagerID     *string          `db:"line_manager_id" json:"line_manager_id,omitempty"`
	LineManagerName   *string          `db:"line_manager_name" json:"line_manager_name,omitempty"`
	LineManagerEmail  *string          `db:"line_manager_email" json:"-"`
	ProbabilityBefore int              `db:"probability_before" json:"probability_before"`
	SeverityBefore    int              `db:"severity_before" json:"severity_before"`
	ScoreBefore       int              `db:"score_before" json:"score_before"`
	RiskLevelBefore   risk.Level       `db:"risk_level_before" json:"risk_level_before"`
	ProbabilityAfter  int              `db:"probability_after" json:"probability_after"`
	SeverityAfter     int              `db:"severity_after" json:"severity_after"`
	ScoreAfter        int              `db:"score_after" json:"score_after"`
	RiskLevelAfter    risk.Level       `db:"risk_level_after" json:"risk_level_after"`
	Status            AssessmentStatus `db:"status" json:"status"`
	Notes             string           `db:"notes" json:"notes"`
	AssessedOn        *time.Time       `db:"assessed_on" json:"assessed_on,omitempty"`
	ApprovedBy        *string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	CreatedBy         *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`

	Measures []RiskMeasure `db:"-" json:"measures"`
}

// Rescore recomputes the derived score and level columns from the ratings.
func (r *RiskAssessment) Rescore() {
	before := risk.Rate(r.ProbabilityBefore, r.SeverityBefore)
	after := risk.Rate(r.ProbabilityAfter, r.SeverityAfter)
	r.ScoreBefore, r.RiskLevelBefore = before.Score, before.Level
	r.ScoreAfter, r.RiskLevelAfter = after.Score, after.Level
}

// Progress is the share of completed measures, computed from the current measures.
func (r RiskAssessment) Progress() int {
	return risk.ProgressOf(r.Measures, func(m RiskMeasure) risk.MeasureStatus { return m.Status })
}

// RiskMeasure is a mitigation action attached to a risk assessment.
type RiskMeasure struct {
	ID               string             `db:"id" json:"id"`
	RiskAssessmentID string             `db:"risk_assessment_id" json:"risk_assessment_id"`
	Category         MeasureCategory    `db:"category" json:"category"`
	Description      string             `db:"description" json:"description"`
	ResponsibleID    *string            `db:"responsible_id" json:"responsible_id,omitempty"`
	ResponsibleName  *string            `db:"responsible_name" json:"responsible_name,omitempty"`
	DueOn            *time.Time         `db:"due_on" json:"due_on,omitempty"`
	Notes            string             `db:"notes" json:"notes"`
	Status           risk.MeasureStatus `db:"status" json:"status"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// Overdue reports whether the measure is past due and not completed at now.
func (m RiskMeasure) Overdue(now time.Time) bool {
	if m.DueOn == nil || m.Status.Terminal() {
		return false
	}
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return m.DueOn.Before(today)
}
