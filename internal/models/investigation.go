package models

import "time"

// InvestigationStatus tracks an investigation.
type InvestigationStatus string

const (
	InvestigationOpen       InvestigationStatus = "open"
	InvestigationInProgress InvestigationStatus = "in_progress"
	InvestigationCompleted  InvestigationStatus = "completed"
)

// Investigation is a root-cause analysis, optionally tied to an incident.
type Investigation struct {
	ID               string              `db:"id" json:"id"`
	CompanyID        string              `db:"company_id" json:"company_id"`
	IncidentID       *string             `db:"incident_id" json:"incident_id,omitempty"`
	Code             string              `db:"code" json:"code"`
	Title            string              `db:"title" json:"title"`
	Status           InvestigationStatus `db:"status" json:"status"`
	InvestigatorID   *string             `db:"investigator_id" json:"investigator_id,omitempty"`
	InvestigatorName *string             `db:"investigator_name" json:"investigator_name,omitempty"`
	StartedOn        *time.Time          `db:"started_on" json:"started_on,omitempty"`
	DueOn            *time.Time          `db:"due_on" json:"due_on,omitempty"`
	RootCause        string              `db:"root_cause" json:"root_cause"`
	Findings         string              `db:"findings" json:"findings"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}
