package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

// DashboardInvalidator drops cached tenant summaries after a mutation.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, companyID string)
}

func requireTenant(actor models.Actor) error {
	if actor.CompanyID == "" {
		return appErrors.Clone(appErrors.ErrTenantRequired, "")
	}
	return nil
}

func invalidate(ctx context.Context, inv DashboardInvalidator, companyID string) {
	if inv != nil {
		inv.Invalidate(ctx, companyID)
	}
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(risk.DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalid(err, field+" must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func trimmed(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	return &v
}

func deref(raw *string) string {
	if raw == nil {
		return ""
	}
	return *raw
}
