package models

import (
	"time"

	"github.com/lib/pq"
)

// SubscriptionPlan is the commercial tier of a company.
type SubscriptionPlan string

const (
	PlanBasic        SubscriptionPlan = "basic"
	PlanProfessional SubscriptionPlan = "professional"
	PlanEnterprise   SubscriptionPlan = "enterprise"
)

// SubscriptionStatus is the lifecycle state of a company subscription.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Known add-ons unlocking optional modules.
const (
	AddonInvestigations = "investigations"
	AddonTrainings      = "trainings"
	AddonExports        = "exports"
)

// Company is a tenant.
type Company struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Slug               string             `db:"slug" json:"slug"`
	Plan               SubscriptionPlan   `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	SubscriptionEndsAt *time.Time         `db:"subscription_ends_at" json:"subscription_ends_at,omitempty"`
	Addons             pq.StringArray     `db:"addons" json:"addons"`
	Active             bool               `db:"active" json:"active"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Usable reports whether users of the company may use the API at now.
func (c Company) Usable(now time.Time) bool {
	if !c.Active {
		return false
	}
	switch c.SubscriptionStatus {
	case SubscriptionSuspended, SubscriptionCancelled:
		return false
	}
	return c.SubscriptionEndsAt == nil || c.SubscriptionEndsAt.After(now)
}

// HasAddon reports whether the add-on is enabled.
func (c Company) HasAddon(name string) bool {
	for _, a := range c.Addons {
		if a == name {
			return true
		}
	}
	return false
}

// CompanyFilter captures back-office list criteria.
type CompanyFilter struct {
	Search   string
	Status   *SubscriptionStatus
	Page     int
	PageSize int
}
