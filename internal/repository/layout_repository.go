package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hse-api/internal/models"
)

// LayoutRepository stores per-user layout blobs.
type LayoutRepository struct {
	db *sqlx.DB
}

// NewLayoutRepository constructs the repository.
func NewLayoutRepository(db *sqlx.DB) *LayoutRepository {
	return &LayoutRepository{db: db}
}

// Get returns the layout stored under key for the user.
func (r *LayoutRepository) Get(ctx context.Context, companyID, userID, key string) (*models.Layout, error) {
	const query = `SELECT company_id, user_id, key, payload, updated_at FROM layouts WHERE company_id = $1 AND user_id = $2 AND key = $3`
	var l models.Layout
	if err := r.db.GetContext(ctx, &l, query, companyID, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return &l, nil
}

// Upsert writes the layout, replacing any previous payload.
func (r *LayoutRepository) Upsert(ctx context.Context, l *models.Layout) error {
	l.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO layouts (company_id, user_id, key, payload, updated_at) VALUES (:company_id, :user_id, :key, :payload, :updated_at)
ON CONFLICT (company_id, user_id, key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("upsert layout: %w", err)
	}
	return nil
}
