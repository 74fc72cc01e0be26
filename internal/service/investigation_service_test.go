package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type fakeInvestigationRepo struct {
	items     []models.Investigation
	createErr error
	created   *models.Investigation
}

func (f *fakeInvestigationRepo) List(ctx context.Context, companyID string) ([]models.Investigation, error) {
	return f.items, nil
}

func (f *fakeInvestigationRepo) FindByID(ctx context.Context, companyID, id string) (*models.Investigation, error) {
	for _, i := range f.items {
		if i.ID == id {
			copy := i
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeInvestigationRepo) CountOpen(ctx context.Context, companyID string) (int, error) {
	return len(f.items), nil
}

func (f *fakeInvestigationRepo) Create(ctx context.Context, inv *models.Investigation) error {
	f.created = inv
	return f.createErr
}

func (f *fakeInvestigationRepo) Update(ctx context.Context, inv *models.Investigation) error {
	return nil
}

func (f *fakeInvestigationRepo) Delete(ctx context.Context, companyID, id string) error {
	return nil
}

func TestInvestigationServiceListSearchesCode(t *testing.T) {
	repo := &fakeInvestigationRepo{items: []models.Investigation{
		{ID: "v1", Code: "INV-2024-001", Title: "Slip", Status: models.InvestigationOpen, StartedOn: day("2024-02-11")},
		{ID: "v2", Code: "INV-2024-002", Title: "Spill", Status: models.InvestigationCompleted, InvestigatorName: strPtr("Ben")},
	}}
	svc := NewInvestigationService(repo, nil, nil, nil)

	items, _, err := svc.List(context.Background(), tenantActor, models.ListQuery{Search: "inv-2024-002"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v2", items[0].ID)

	items, _, err = svc.List(context.Background(), tenantActor, models.ListQuery{From: "2024-01-01", To: "2024-12-31"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v1", items[0].ID)
}

func TestInvestigationServiceCreate(t *testing.T) {
	repo := &fakeInvestigationRepo{}
	svc := NewInvestigationService(repo, nil, nil, nil)

	inv, err := svc.Create(context.Background(), tenantActor, InvestigationRequest{Code: " inv-2024-003 ", Title: "Fall", StartedOn: strPtr("2024-04-01"), DueOn: strPtr("2024-04-30")})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-003", inv.Code)
	assert.Equal(t, models.InvestigationOpen, inv.Status)

	_, err = svc.Create(context.Background(), tenantActor, InvestigationRequest{Code: "A", Title: "B", StartedOn: strPtr("2024-04-01"), DueOn: strPtr("2024-03-01")})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestInvestigationServiceCreateDuplicateCode(t *testing.T) {
	repo := &fakeInvestigationRepo{createErr: &pq.Error{Code: "23505"}}
	svc := NewInvestigationService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), tenantActor, InvestigationRequest{Code: "INV-1", Title: "Dup"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}
