package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hse-api/internal/models"
)

const companyColumns = `id, name, slug, subscription_plan, subscription_status, subscription_ends_at, addons, active, created_at, updated_at`

// CompanyRepository persists tenants.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository creates a new instance of CompanyRepository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// List returns companies matching filter with the total count.
func (r *CompanyRepository) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error) {
	base := `FROM companies WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(slug) LIKE $%d)", len(args), len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND subscription_status = $%d", len(args))
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", companyColumns, base, size, models.Offset(page, size))

	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}
	return companies, total, nil
}

// FindByID returns a company or sql.ErrNoRows.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &company, nil
}

// Create inserts a company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt, company.UpdatedAt = now, now
	if company.Addons == nil {
		company.Addons = []string{}
	}
	const query = `INSERT INTO companies (id, name, slug, subscription_plan, subscription_status, subscription_ends_at, addons, active, created_at, updated_at)
VALUES (:id, :name, :slug, :subscription_plan, :subscription_status, :subscription_ends_at, :addons, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// Update writes name, slug, subscription and active flag.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	if company.Addons == nil {
		company.Addons = []string{}
	}
	const query = `UPDATE companies SET name = :name, slug = :slug, subscription_plan = :subscription_plan,
subscription_status = :subscription_status, subscription_ends_at = :subscription_ends_at, addons = :addons,
active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}
