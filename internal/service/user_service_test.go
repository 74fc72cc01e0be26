package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type mockUserRepo struct {
	users        map[string]*models.User
	lastFilter   models.UserFilter
	listErr      error
	revokedUsers []string
	auditLogs    []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var users []models.User
	for _, u := range m.users {
		if u.CompanyID != nil && *u.CompanyID == filter.CompanyID {
			users = append(users, *u)
		}
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func strPtr(s string) *string { return &s }

func seededUsers() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", CompanyID: strPtr("c1"), Email: "ana@acme.test", FullName: "Ana", Role: models.RoleEmployee, Active: true},
		"u2": {ID: "u2", CompanyID: strPtr("c2"), Email: "ben@other.test", FullName: "Ben", Role: models.RoleEmployee, Active: true},
	}}
}

var companyAdmin = models.Actor{UserID: "admin", CompanyID: "c1", Role: models.RoleAdmin}

func TestUserServiceListScopesToCompany(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	users, pagination, err := svc.List(context.Background(), companyAdmin, models.UserFilter{CompanyID: "c2", PageSize: 500})
	require.NoError(t, err)

	assert.Equal(t, "c1", repo.lastFilter.CompanyID)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, models.MaxPageSize, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceGetHidesOtherTenants(t *testing.T) {
	svc := NewUserService(seededUsers(), nil, nil)

	_, err := svc.Get(context.Background(), companyAdmin, "u2")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestUserServiceCreate(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), companyAdmin, CreateUserRequest{
		CompanyID: "7d0c3f6e-9a8e-4a53-9a59-1f7b7a4b2f10",
		Email:     " CLEO@ACME.TEST ",
		FullName:  "Cleo",
		Password:  "password1",
		Role:      models.RoleManager,
		Active:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "cleo@acme.test", user.Email)
	assert.Equal(t, "c1", *user.CompanyID)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserServiceCreateBySuperAdminTargetsCompany(t *testing.T) {
	svc := NewUserService(seededUsers(), nil, nil)
	target := "7d0c3f6e-9a8e-4a53-9a59-1f7b7a4b2f10"

	user, err := svc.Create(context.Background(), models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, CreateUserRequest{
		CompanyID: target, Email: "new@acme.test", FullName: "New", Password: "password1", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, target, *user.CompanyID)
}

func TestUserServiceCreateErrors(t *testing.T) {
	svc := NewUserService(seededUsers(), nil, nil)

	_, err := svc.Create(context.Background(), companyAdmin, CreateUserRequest{Email: "ana@acme.test", FullName: "Dup", Password: "password1", Role: models.RoleEmployee})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))

	_, err = svc.Create(context.Background(), companyAdmin, CreateUserRequest{Email: "x@acme.test", FullName: "Root", Password: "password1", Role: models.RoleSuperAdmin})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = svc.Create(context.Background(), models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, CreateUserRequest{Email: "y@acme.test", FullName: "Y", Password: "password1", Role: models.RoleEmployee})
	assert.Equal(t, appErrors.ErrTenantRequired.Code, errorCode(t, err))
}

func TestUserServiceUpdateDeactivationRevokesSessions(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	active := false

	user, err := svc.Update(context.Background(), companyAdmin, "u1", UpdateUserRequest{FullName: "Ana Maria", Role: models.RoleManager, Active: &active})
	require.NoError(t, err)

	assert.Equal(t, models.RoleManager, user.Role)
	assert.False(t, repo.users["u1"].Active)
	assert.Equal(t, []string{"u1"}, repo.revokedUsers)
	require.Len(t, repo.auditLogs, 1)
	assert.JSONEq(t, `{"role":"EMPLOYEE","active":true}`, string(repo.auditLogs[0].OldValues))
}

func TestUserServiceTrimsBeforeValidating(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), companyAdmin, CreateUserRequest{
		Email: "  ANA@ACME.TEST ", FullName: "Dup", Password: "password1", Role: models.RoleEmployee,
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err), "padded mixed-case email still collides")

	_, err = svc.Create(context.Background(), companyAdmin, CreateUserRequest{
		Email: "blank@acme.test", FullName: "  ", Password: "password1", Role: models.RoleEmployee,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	user, err := svc.Update(context.Background(), companyAdmin, "u1", UpdateUserRequest{FullName: "  Ana Maria ", Role: models.RoleEmployee})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.FullName)

	_, err = svc.Update(context.Background(), companyAdmin, "u1", UpdateUserRequest{FullName: " ", Role: models.RoleEmployee})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestUserServiceDeactivate(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), companyAdmin, "u1"))
	assert.False(t, repo.users["u1"].Active)
	assert.Len(t, repo.auditLogs, 1)

	require.NoError(t, svc.Deactivate(context.Background(), companyAdmin, "u1"))
	assert.Len(t, repo.auditLogs, 1)

	err := svc.Deactivate(context.Background(), models.Actor{UserID: "u1", CompanyID: "c1"}, "u1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}
