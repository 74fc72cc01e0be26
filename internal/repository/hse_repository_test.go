package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/models"
)

func TestCompanyListFiltersAndCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRepository(db)

	now := time.Now()
	status := models.SubscriptionActive
	rows := sqlmock.NewRows([]string{"id", "name", "slug", "subscription_plan", "subscription_status", "subscription_ends_at", "addons", "active", "created_at", "updated_at"}).
		AddRow("c-1", "Acme", "acme", "professional", "active", nil, "{investigations,exports}", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(slug) LIKE $1) AND subscription_status = $2 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%ac%", status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM companies")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	companies, total, err := repo.List(context.Background(), models.CompanyFilter{Search: "AC", Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, companies, 1)
	assert.True(t, companies[0].HasAddon(models.AddonExports))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvestigationDuplicateCodeIsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvestigationRepository(db)

	mock.ExpectExec("INSERT INTO investigations").WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := repo.Create(context.Background(), &models.Investigation{CompanyID: "c-1", Code: "INV-2024-001"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", errors.New("other"))))
}

func TestInvestigationCountOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvestigationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("status <> 'completed'")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountOpen(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTrainingListExpiring(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRepository(db)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	valid := from.AddDate(0, 0, 10)
	rows := sqlmock.NewRows([]string{"id", "company_id", "employee_id", "employee_name", "department_name", "title", "completed_on", "valid_until", "status", "created_at", "updated_at"}).
		AddRow("t-1", "c-1", "e-1", "Ana", "Logistics", "Forklift licence", nil, valid, "completed", from, from)
	mock.ExpectQuery(regexp.QuoteMeta("t.valid_until BETWEEN $2 AND $3")).
		WithArgs("c-1", from, to).
		WillReturnRows(rows)

	list, err := repo.ListExpiring(context.Background(), "c-1", from, to)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].EmployeeName)
}

func TestDepartmentDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments")).
		WithArgs("c-1", "d-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "c-1", "d-9"), sql.ErrNoRows)
}

func TestEmployeeListActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "company_id", "personnel_number", "full_name", "email", "position", "department_id", "department_name", "location", "exposure_group", "line_manager", "active", "hired_on", "created_at", "updated_at"}).
		AddRow("e-1", "c-1", "P-001", "Ana", "ana@example.com", "Driver", "d-1", "Logistics", "Plant 1", "Drivers", false, true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.company_id = $1 AND e.active = TRUE")).
		WithArgs("c-1").
		WillReturnRows(rows)

	list, err := repo.ListActive(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Logistics", *list[0].DepartmentName)
}

func TestLayoutUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLayoutRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (company_id, user_id, key) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := &models.Layout{CompanyID: "c-1", UserID: "u-1", Key: "dashboard", Payload: []byte(`{"widgets":["bands"]}`)}
	require.NoError(t, repo.Upsert(context.Background(), l))
	assert.False(t, l.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
