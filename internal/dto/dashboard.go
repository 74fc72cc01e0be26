package dto

import (
	"time"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
)

// DashboardSummary is the cached per-tenant overview.
type DashboardSummary struct {
	CompanyID   string             `json:"company_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Risks       DashboardRisks     `json:"risks"`
	Incidents   DashboardIncidents `json:"incidents"`
	Trainings   DashboardTrainings `json:"trainings"`
}

// DashboardRisks summarises assessments and their measures.
type DashboardRisks struct {
	Total           int                             `json:"total"`
	ByLevelBefore   map[risk.Level]int              `json:"by_level_before"`
	ByLevelAfter    map[risk.Level]int              `json:"by_level_after"`
	ByStatus        map[models.AssessmentStatus]int `json:"by_status"`
	MeasureProgress int                             `json:"measure_progress"`
	OverdueMeasures int                             `json:"overdue_measures"`
}

// DashboardIncidents summarises incident handling.
type DashboardIncidents struct {
	Total              int                           `json:"total"`
	ByStatus           map[models.IncidentStatus]int `json:"by_status"`
	OpenInvestigations int                           `json:"open_investigations"`
}

// DashboardTrainings lists trainings about to expire.
type DashboardTrainings struct {
	ExpiringWithinDays int               `json:"expiring_within_days"`
	Expiring           []models.Training `json:"expiring"`
}
