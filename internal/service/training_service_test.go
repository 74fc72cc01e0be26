package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type fakeTrainingRepo struct {
	items []models.Training
	saved *models.Training
}

func (f *fakeTrainingRepo) List(ctx context.Context, companyID string) ([]models.Training, error) {
	return f.items, nil
}

func (f *fakeTrainingRepo) FindByID(ctx context.Context, companyID, id string) (*models.Training, error) {
	for _, t := range f.items {
		if t.ID == id {
			copy := t
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTrainingRepo) Create(ctx context.Context, t *models.Training) error {
	f.saved = t
	return nil
}

func (f *fakeTrainingRepo) Update(ctx context.Context, t *models.Training) error {
	f.saved = t
	return nil
}

func (f *fakeTrainingRepo) Delete(ctx context.Context, companyID, id string) error {
	return nil
}

const employeeUUID = "2f8f4b4e-3c1d-4c3a-9a55-7b6a1d2e9f01"

func TestTrainingServiceCreateDerivesStatus(t *testing.T) {
	svc := NewTrainingService(&fakeTrainingRepo{}, nil, nil, nil)

	scheduled, err := svc.Create(context.Background(), tenantActor, TrainingRequest{EmployeeID: employeeUUID, Title: "First aid"})
	require.NoError(t, err)
	assert.Equal(t, models.TrainingScheduled, scheduled.Status)

	completed, err := svc.Create(context.Background(), tenantActor, TrainingRequest{EmployeeID: employeeUUID, Title: "Forklift", CompletedOn: strPtr("2024-01-15"), ValidUntil: strPtr("2026-01-15")})
	require.NoError(t, err)
	assert.Equal(t, models.TrainingCompleted, completed.Status)

	_, err = svc.Create(context.Background(), tenantActor, TrainingRequest{EmployeeID: employeeUUID, Title: "Bad", CompletedOn: strPtr("2024-01-15"), ValidUntil: strPtr("2023-01-15")})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestTrainingServiceListFilters(t *testing.T) {
	repo := &fakeTrainingRepo{items: []models.Training{
		{ID: "t1", EmployeeName: "Ana", Title: "First aid", Status: models.TrainingCompleted, CompletedOn: day("2024-01-15")},
		{ID: "t2", EmployeeName: "Ben", Title: "Forklift", Status: models.TrainingScheduled},
	}}
	svc := NewTrainingService(repo, nil, nil, nil)

	items, pagination, err := svc.List(context.Background(), tenantActor, models.ListQuery{Search: "ben"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t2", items[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	items, _, err = svc.List(context.Background(), tenantActor, models.ListQuery{Selections: map[string]string{"status": "completed"}})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
