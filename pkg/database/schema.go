package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaSQL creates every table the API reads or writes. Statements are idempotent.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS companies (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	subscription_plan TEXT NOT NULL DEFAULT 'basic',
	subscription_status TEXT NOT NULL DEFAULT 'trial',
	subscription_ends_at TIMESTAMPTZ,
	addons TEXT[] NOT NULL DEFAULT '{}',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	company_id UUID REFERENCES companies(id),
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	token TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	revoked BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at TIMESTAMPTZ,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	company_id UUID,
	user_id UUID,
	action TEXT NOT NULL,
	resource TEXT NOT NULL,
	resource_id TEXT,
	old_values JSONB,
	new_values JSONB,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS departments (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	name TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (company_id, name)
);

CREATE TABLE IF NOT EXISTS employees (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	personnel_number TEXT NOT NULL,
	full_name TEXT NOT NULL,
	email TEXT,
	position TEXT NOT NULL DEFAULT '',
	department_id UUID,
	location TEXT NOT NULL DEFAULT '',
	exposure_group TEXT NOT NULL DEFAULT '',
	line_manager BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	hired_on DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (company_id, personnel_number)
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	hazard_type TEXT NOT NULL,
	department_id UUID,
	location TEXT NOT NULL DEFAULT '',
	exposure_group TEXT NOT NULL DEFAULT '',
	line_manager_id UUID,
	probability_before INT NOT NULL,
	severity_before INT NOT NULL,
	score_before INT NOT NULL,
	risk_level_before TEXT NOT NULL,
	probability_after INT NOT NULL,
	severity_after INT NOT NULL,
	score_after INT NOT NULL,
	risk_level_after TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	notes TEXT NOT NULL DEFAULT '',
	assessed_on DATE,
	approved_by UUID,
	approved_at TIMESTAMPTZ,
	created_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS risk_measures (
	id UUID PRIMARY KEY,
	risk_assessment_id UUID NOT NULL REFERENCES risk_assessments(id),
	category TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	responsible_id UUID,
	due_on DATE,
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'not_started',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS incidents (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	occurred_on DATE,
	department_id UUID,
	location TEXT NOT NULL DEFAULT '',
	reported_by UUID,
	assignee_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS investigations (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	incident_id UUID,
	code TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	investigator_id UUID,
	started_on DATE,
	due_on DATE,
	root_cause TEXT NOT NULL DEFAULT '',
	findings TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (company_id, code)
);

CREATE TABLE IF NOT EXISTS trainings (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id),
	employee_id UUID NOT NULL REFERENCES employees(id),
	title TEXT NOT NULL,
	completed_on DATE,
	valid_until DATE,
	status TEXT NOT NULL DEFAULT 'scheduled',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS report_jobs (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL,
	type TEXT NOT NULL,
	params JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	progress INT NOT NULL DEFAULT 0,
	result_url TEXT,
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at TIMESTAMPTZ,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS layouts (
	company_id UUID NOT NULL,
	user_id UUID NOT NULL,
	key TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (company_id, user_id, key)
);

CREATE INDEX IF NOT EXISTS idx_risk_assessments_company ON risk_assessments (company_id);
CREATE INDEX IF NOT EXISTS idx_risk_measures_assessment ON risk_measures (risk_assessment_id);
CREATE INDEX IF NOT EXISTS idx_incidents_company ON incidents (company_id);
CREATE INDEX IF NOT EXISTS idx_trainings_company ON trainings (company_id);
`

// Migrate applies SchemaSQL.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
