package dto

import (
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type   models.ReportType   `json:"type" validate:"required,oneof=risk_assessments incidents trainings_by_employee risks_by_department"`
	Format models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Query  models.ListQuery    `json:"query"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// EmployeeTrainings is one row of the trainings-by-employee report.
type EmployeeTrainings struct {
	EmployeeID     string                        `json:"employee_id"`
	EmployeeName   string                        `json:"employee_name"`
	DepartmentName *string                       `json:"department_name,omitempty"`
	StatusCounts   map[models.TrainingStatus]int `json:"status_counts"`
	Trainings      []models.Training             `json:"trainings"`
}

// DepartmentRisks is one group of the risks-by-department report.
type DepartmentRisks struct {
	Department      string             `json:"department"`
	Count           int                `json:"count"`
	LevelCounts     map[risk.Level]int `json:"level_counts"`
	AverageProgress int                `json:"average_progress"`
	OpenMeasures    int                `json:"open_measures"`
}

// IncidentStatusGroup is one group of the incidents-by-status report.
type IncidentStatusGroup struct {
	Status    models.IncidentStatus `json:"status"`
	Count     int                   `json:"count"`
	Incidents []models.Incident     `json:"incidents"`
}
