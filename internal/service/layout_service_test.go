package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
)

type fakeLayoutRepo struct {
	items map[string]models.Layout
}

func (f *fakeLayoutRepo) Get(ctx context.Context, companyID, userID, key string) (*models.Layout, error) {
	l, ok := f.items[companyID+"/"+userID+"/"+key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (f *fakeLayoutRepo) Upsert(ctx context.Context, l *models.Layout) error {
	f.items[l.CompanyID+"/"+l.UserID+"/"+l.Key] = *l
	return nil
}

func TestLayoutServicePutAndGet(t *testing.T) {
	repo := &fakeLayoutRepo{items: map[string]models.Layout{}}
	svc := NewLayoutService(repo, 64, nil)
	ctx := context.Background()

	_, err := svc.Put(ctx, tenantActor, "Risk-Report", []byte(`{"columns":["title","after"]}`))
	require.NoError(t, err)

	got, err := svc.Get(ctx, tenantActor, "risk-report")
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["title","after"]}`, string(got.Payload))

	other := tenantActor
	other.UserID = "u2"
	_, err = svc.Get(ctx, other, "risk-report")
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestLayoutServiceRejectsInvalidPayloads(t *testing.T) {
	svc := NewLayoutService(&fakeLayoutRepo{items: map[string]models.Layout{}}, 64, nil)
	ctx := context.Background()

	_, err := svc.Put(ctx, tenantActor, "dash", []byte(`{"broken":`))
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.Put(ctx, tenantActor, "dash", []byte("  "))
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.Put(ctx, tenantActor, "dash", []byte(`"`+strings.Repeat("x", 80)+`"`))
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.Put(ctx, tenantActor, "../etc", []byte(`{}`))
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.Put(ctx, models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, "dash", []byte(`{}`))
	assert.Equal(t, "TENANT_REQUIRED", errorCode(t, err))
}
