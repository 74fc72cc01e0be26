package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Layout is an opaque per-user presentation blob, e.g. a custom report column set.
type Layout struct {
	CompanyID string         `db:"company_id" json:"company_id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Key       string         `db:"key" json:"key"`
	Payload   types.JSONText `db:"payload" json:"payload"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
