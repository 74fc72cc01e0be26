package dto

import (
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
)

// RiskAssessmentView is an assessment with progress computed from its current measures.
type RiskAssessmentView struct {
	models.RiskAssessment
	Before          risk.Rating `json:"before"`
	After           risk.Rating `json:"after"`
	Progress        int         `json:"progress"`
	OverdueMeasures int         `json:"overdue_measures"`
}

// MeasureStatusResult reports a bulk measure status change.
type MeasureStatusResult struct {
	AssessmentID string             `json:"assessment_id"`
	Status       risk.MeasureStatus `json:"status"`
	Updated      int64              `json:"updated"`
	Progress     int                `json:"progress"`
}

// RiskMatrix is the probability × severity grid with assessment counts per cell.
type RiskMatrix struct {
	Cells      [][]risk.MatrixCell `json:"cells"`
	Total      int                 `json:"total"`
	Unplotted  int                 `json:"unplotted"`
	MinRating  int                 `json:"min_rating"`
	MaxRating  int                 `json:"max_rating"`
	Thresholds map[risk.Level]int  `json:"thresholds"`
}
