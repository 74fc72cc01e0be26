package models

import "time"

// IncidentType classifies an incident.
type IncidentType string

const (
	IncidentAccident            IncidentType = "accident"
	IncidentNearMiss            IncidentType = "near_miss"
	IncidentPropertyDamage      IncidentType = "property_damage"
	IncidentEnvironmental       IncidentType = "environmental"
	IncidentOccupationalIllness IncidentType = "occupational_illness"
)

// IncidentSeverity grades the outcome of an incident.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityModerate IncidentSeverity = "moderate"
	SeveritySerious  IncidentSeverity = "serious"
	SeverityFatal    IncidentSeverity = "fatal"
)

// IncidentStatus tracks incident handling.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentClosed        IncidentStatus = "closed"
)

// IncidentStatuses lists statuses in workflow order.
var IncidentStatuses = []IncidentStatus{IncidentOpen, IncidentInvestigating, IncidentClosed}

// Incident is a reported safety event.
type Incident struct {
	ID             string           `db:"id" json:"id"`
	CompanyID      string           `db:"company_id" json:"company_id"`
	Title          string           `db:"title" json:"title"`
	Description    string           `db:"description" json:"description"`
	Type           IncidentType     `db:"type" json:"type"`
	Severity       IncidentSeverity `db:"severity" json:"severity"`
	Status         IncidentStatus   `db:"status" json:"status"`
	OccurredOn     *time.Time       `db:"occurred_on" json:"occurred_on,omitempty"`
	DepartmentID   *string          `db:"department_id" json:"department_id,omitempty"`
	DepartmentName *string          `db:"department_name" json:"department_name,omitempty"`
	Location       string           `db:"location" json:"location"`
	ReportedBy     *string          `db:"reported_by" json:"reported_by,omitempty"`
	AssigneeID     *string          `db:"assignee_id" json:"assignee_id,omitempty"`
	AssigneeName   *string          `db:"assignee_name" json:"assignee_name,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}
