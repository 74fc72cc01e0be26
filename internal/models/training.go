package models

import "time"

// TrainingStatus tracks a training record.
type TrainingStatus string

const (
	TrainingScheduled TrainingStatus = "scheduled"
	TrainingCompleted TrainingStatus = "completed"
	TrainingExpired   TrainingStatus = "expired"
)

// TrainingStatuses lists every status, used to zero-fill report counters.
var TrainingStatuses = []TrainingStatus{TrainingScheduled, TrainingCompleted, TrainingExpired}

// Training is a course attendance record of an employee.
type Training struct {
	ID             string         `db:"id" json:"id"`
	CompanyID      string         `db:"company_id" json:"company_id"`
	EmployeeID     string         `db:"employee_id" json:"employee_id"`
	EmployeeName   string         `db:"employee_name" json:"employee_name"`
	DepartmentName *string        `db:"department_name" json:"department_name,omitempty"`
	Title          string         `db:"title" json:"title"`
	CompletedOn    *time.Time     `db:"completed_on" json:"completed_on,omitempty"`
	ValidUntil     *time.Time     `db:"valid_until" json:"valid_until,omitempty"`
	Status         TrainingStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
