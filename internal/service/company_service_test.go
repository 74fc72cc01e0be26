package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type fakeCompanyRepo struct {
	companies map[string]*models.Company
	createErr error
	updates   int
}

func (f *fakeCompanyRepo) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error) {
	out := make([]models.Company, 0, len(f.companies))
	for _, c := range f.companies {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeCompanyRepo) FindByID(ctx context.Context, id string) (*models.Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (f *fakeCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.companies == nil {
		f.companies = map[string]*models.Company{}
	}
	copy := *company
	f.companies[company.ID] = &copy
	return nil
}

func (f *fakeCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	f.updates++
	copy := *company
	f.companies[company.ID] = &copy
	return nil
}

type fakeAudit struct{ logs []*models.AuditLog }

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

var superAdmin = models.Actor{UserID: "root", Role: models.RoleSuperAdmin}

func TestCompanyServiceCreateStartsTrial(t *testing.T) {
	repo := &fakeCompanyRepo{}
	audit := &fakeAudit{}
	svc := NewCompanyService(repo, audit, nil, nil)

	company, err := svc.Create(context.Background(), superAdmin, CreateCompanyRequest{Name: " Acme Ltd ", Slug: "Acme Ltd", Addons: []string{models.AddonTrainings}})
	require.NoError(t, err)

	assert.Equal(t, "Acme Ltd", company.Name)
	assert.Equal(t, "acme-ltd", company.Slug)
	assert.Equal(t, models.PlanBasic, company.Plan)
	assert.Equal(t, models.SubscriptionTrial, company.SubscriptionStatus)
	assert.True(t, company.HasAddon(models.AddonTrainings))
	assert.Len(t, audit.logs, 1)
}

func TestCompanyServiceCreateSlugConflict(t *testing.T) {
	repo := &fakeCompanyRepo{createErr: &pq.Error{Code: "23505"}}
	svc := NewCompanyService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), superAdmin, CreateCompanyRequest{Name: "Acme", Slug: "acme"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))

	_, err = svc.Create(context.Background(), superAdmin, CreateCompanyRequest{Name: "Acme", Slug: "acme", Addons: []string{"billing"}})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestCompanyServiceUpdateSubscription(t *testing.T) {
	repo := &fakeCompanyRepo{companies: map[string]*models.Company{
		"c1": {ID: "c1", Name: "Acme", Slug: "acme", Plan: models.PlanBasic, SubscriptionStatus: models.SubscriptionTrial, Active: true},
	}}
	svc := NewCompanyService(repo, &fakeAudit{}, nil, nil)
	ends := time.Now().Add(-time.Hour)

	company, err := svc.UpdateSubscription(context.Background(), superAdmin, "c1", UpdateSubscriptionRequest{
		Plan: models.PlanEnterprise, Status: models.SubscriptionActive, EndsAt: &ends, Addons: []string{models.AddonExports},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PlanEnterprise, company.Plan)
	assert.False(t, company.Usable(time.Now()))
	assert.True(t, repo.companies["c1"].HasAddon(models.AddonExports))
}

func TestCompanyServiceDeactivate(t *testing.T) {
	repo := &fakeCompanyRepo{companies: map[string]*models.Company{"c1": {ID: "c1", Active: true}}}
	svc := NewCompanyService(repo, nil, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), superAdmin, "c1"))
	require.NoError(t, svc.Deactivate(context.Background(), superAdmin, "c1"))
	assert.False(t, repo.companies["c1"].Active)
	assert.Equal(t, 1, repo.updates)

	err := svc.Deactivate(context.Background(), superAdmin, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
