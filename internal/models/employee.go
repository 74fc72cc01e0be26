package models

import "time"

// Employee is a person working for a company. Department is a weak reference.
type Employee struct {
	ID              string     `db:"id" json:"id"`
	CompanyID       string     `db:"company_id" json:"company_id"`
	PersonnelNumber string     `db:"personnel_number" json:"personnel_number"`
	FullName        string     `db:"full_name" json:"full_name"`
	Email           *string    `db:"email" json:"email,omitempty"`
	Position        string     `db:"position" json:"position"`
	DepartmentID    *string    `db:"department_id" json:"department_id,omitempty"`
	DepartmentName  *string    `db:"department_name" json:"department_name,omitempty"`
	Location        string     `db:"location" json:"location"`
	ExposureGroup   string     `db:"exposure_group" json:"exposure_group"`
	LineManager     bool       `db:"line_manager" json:"line_manager"`
	Active          bool       `db:"active" json:"active"`
	HiredOn         *time.Time `db:"hired_on" json:"hired_on,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ActivityLabel is the status category used by list filters.
func (e Employee) ActivityLabel() string {
	if e.Active {
		return "active"
	}
	return "inactive"
}
